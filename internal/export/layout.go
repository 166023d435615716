package export

import "strings"

// SheetRow is one printed line: a SKU from each half of the list.
type SheetRow struct {
	Left  string
	Right string
}

// SheetLayout is the worksheet split into pages ahead of rendering so each
// page knows the total.
type SheetLayout struct {
	Pages [][]SheetRow
}

func (l SheetLayout) TotalPages() int {
	return len(l.Pages)
}

// LayoutSheet fills the left column top to bottom with the first half of
// skus and the right column with the rest. Blank SKUs are dropped. An
// empty list still yields one page so the header prints.
func LayoutSheet(skus []string, rowsPerPage int) SheetLayout {
	if rowsPerPage <= 0 {
		rowsPerPage = 1
	}
	clean := make([]string, 0, len(skus))
	for _, s := range skus {
		if strings.TrimSpace(s) != "" {
			clean = append(clean, s)
		}
	}

	half := (len(clean) + 1) / 2
	left, right := clean[:half], clean[half:]
	rows := make([]SheetRow, half)
	for i := 0; i < half; i++ {
		rows[i].Left = left[i]
		if i < len(right) {
			rows[i].Right = right[i]
		}
	}

	layout := SheetLayout{}
	for start := 0; start < len(rows); start += rowsPerPage {
		end := start + rowsPerPage
		if end > len(rows) {
			end = len(rows)
		}
		layout.Pages = append(layout.Pages, rows[start:end])
	}
	if len(layout.Pages) == 0 {
		layout.Pages = [][]SheetRow{{}}
	}
	return layout
}
