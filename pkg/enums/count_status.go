package enums

// CountStatus buckets how far a physical count sits from the on-hand figure.
type CountStatus string

const (
	CountStatusUnset    CountStatus = "unset"
	CountStatusExact    CountStatus = "exact"
	CountStatusNear     CountStatus = "near"
	CountStatusModerate CountStatus = "moderate"
	CountStatusFar      CountStatus = "far"
)

// String implements fmt.Stringer.
func (s CountStatus) String() string {
	return string(s)
}

// Color is the highlight the count sheet uses for the status.
func (s CountStatus) Color() string {
	switch s {
	case CountStatusExact:
		return "green"
	case CountStatusNear:
		return "yellow"
	case CountStatusModerate:
		return "orange"
	case CountStatusFar:
		return "red"
	default:
		return ""
	}
}
