package entries

import (
	"strings"

	"github.com/angelmondragon/countsheet-backend/internal/ingest"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
)

const (
	nearLimit     = 10
	moderateLimit = 20
)

// Classify buckets how far a count is from on hand. A count against an
// unknown on hand is always far.
func Classify(count, onHand *int) enums.CountStatus {
	if count == nil {
		return enums.CountStatusUnset
	}
	if onHand == nil {
		return enums.CountStatusFar
	}
	diff := *count - *onHand
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return enums.CountStatusExact
	case diff <= nearLimit:
		return enums.CountStatusNear
	case diff <= moderateLimit:
		return enums.CountStatusModerate
	default:
		return enums.CountStatusFar
	}
}

// NormalizeCount turns raw input into a count. Blank and garbled input both
// clear the count.
func NormalizeCount(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, ok := ingest.ParseInt(raw)
	if !ok {
		return nil
	}
	return &n
}

// Difference is count minus on hand, treating a missing on hand as zero.
func Difference(count, onHand *int) *int {
	if count == nil {
		return nil
	}
	d := *count
	if onHand != nil {
		d -= *onHand
	}
	return &d
}
