package ingest

import (
	"errors"
	"fmt"
)

// ErrIngest marks every failure to turn an upload into rows.
var ErrIngest = errors.New("ingest failed")

// MaxReportedRejections caps how many row rejections are returned to the uploader.
const MaxReportedRejections = 50

func ingestErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIngest, fmt.Sprintf(format, args...))
}

// RowError describes why one spreadsheet line was dropped. Line is 1-based
// and counts the header, so it matches what the uploader sees in their editor.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// CapRejections trims rejections to MaxReportedRejections.
func CapRejections(rejections []RowError) []RowError {
	if len(rejections) <= MaxReportedRejections {
		return rejections
	}
	return rejections[:MaxReportedRejections]
}
