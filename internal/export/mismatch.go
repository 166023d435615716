// Package export renders entry lists into downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
)

// Mismatched keeps entries with a count that differs from on hand, in order.
func Mismatched(rows []models.Entry) []models.Entry {
	out := make([]models.Entry, 0, len(rows))
	for _, r := range rows {
		if r.Count == nil {
			continue
		}
		if r.OnHand != nil && *r.Count == *r.OnHand {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Missing keeps entries without a count, in order.
func Missing(rows []models.Entry) []models.Entry {
	out := make([]models.Entry, 0, len(rows))
	for _, r := range rows {
		if r.Count == nil {
			out = append(out, r)
		}
	}
	return out
}

// MismatchCSV writes SKU,On Hand,Count,Difference and, when withUser is
// set, the assignee. The output depends only on rows.
func MismatchCSV(rows []models.Entry, withUser bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"SKU", "On Hand", "Count", "Difference"}
	if withUser {
		header = append(header, "User")
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range Mismatched(rows) {
		record := []string{
			r.SKU,
			formatInt(r.OnHand),
			formatInt(r.Count),
			formatInt(entries.Difference(r.Count, r.OnHand)),
		}
		if withUser {
			record = append(record, r.AssignedTo)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
