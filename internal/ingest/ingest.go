// Package ingest turns uploaded spreadsheets into validated count rows.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// RawRow is one data line of the sheet with the header already dropped.
type RawRow struct {
	Line  int
	Cells []string
}

// Row is a validated data line ready for assignment.
type Row struct {
	SKU         string
	OnHand      int
	Description string
	Count       *int
}

const (
	colSKU = iota
	colOnHand
	_
	colDescription
	colCount
)

// Parse decodes r into raw rows. The first row is treated as the header and
// discarded. Entirely blank lines are skipped.
func Parse(filename string, r io.Reader) ([]RawRow, error) {
	if r == nil {
		return nil, ingestErr("no content")
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, ingestErr("read upload: %v", err)
	}
	if len(content) == 0 {
		return nil, ingestErr("file is empty")
	}

	var grid [][]string
	switch format := DetectFormat(filename, content); format {
	case FormatCSV:
		grid, err = readCSV(content)
	case FormatXLSX:
		grid, err = readXLSX(content)
	case FormatSpreadsheetML:
		grid, err = readSpreadsheetML(content)
	case FormatLegacyXLS:
		return nil, ingestErr("unsupported legacy xls, save as xlsx")
	default:
		return nil, ingestErr("unsupported file format")
	}
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, ingestErr("no parseable sheet")
	}

	rows := make([]RawRow, 0, len(grid)-1)
	for i, cells := range grid[1:] {
		if blank(cells) {
			continue
		}
		rows = append(rows, RawRow{Line: i + 2, Cells: cells})
	}
	return rows, nil
}

// Validate keeps the rows that parse, in their original order, and reports
// the rest.
func Validate(raw []RawRow) ([]Row, []RowError) {
	rows := make([]Row, 0, len(raw))
	var rejections []RowError
	for _, rr := range raw {
		row, rowErr := ParseRow(rr)
		if rowErr != nil {
			rejections = append(rejections, *rowErr)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejections
}

// ParseRow validates one raw line. SKU and On Hand are required; a
// non-integer Count is treated as absent rather than rejecting the line.
func ParseRow(raw RawRow) (Row, *RowError) {
	sku := cell(raw.Cells, colSKU)
	if sku == "" {
		return Row{}, &RowError{Line: raw.Line, Reason: "sku is required"}
	}

	onHandRaw := cell(raw.Cells, colOnHand)
	if onHandRaw == "" {
		return Row{}, &RowError{Line: raw.Line, Reason: "on hand is required"}
	}
	onHand, ok := ParseInt(onHandRaw)
	if !ok {
		return Row{}, &RowError{Line: raw.Line, Reason: fmt.Sprintf("on hand %q is not a whole number", onHandRaw)}
	}

	row := Row{
		SKU:         sku,
		OnHand:      onHand,
		Description: cell(raw.Cells, colDescription),
	}
	if count, ok := ParseInt(cell(raw.Cells, colCount)); ok {
		row.Count = &count
	}
	return row, nil
}

// ParseInt accepts integers and decimals with a zero fraction ("12.0"),
// since spreadsheets store every number as a float.
func ParseInt(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, false
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	if !d.BigInt().IsInt64() {
		return 0, false
	}
	n := d.IntPart()
	if int64(int(n)) != n {
		return 0, false
	}
	return int(n), true
}

func cell(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
