package export

import (
	"fmt"

	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/xuri/excelize/v2"
)

const workbookSheet = "Counts"

var workbookHeaders = []string{
	"Upload Index",
	"SKU",
	"Description",
	"On Hand",
	"Count",
	"Difference",
	"Status",
	"Assigned To",
	"Entered By",
}

// Workbook writes every entry to a single-sheet XLSX.
func Workbook(rows []models.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), workbookSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range workbookHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(workbookSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, r := range rows {
		line := i + 2
		write := func(col int, v any) error {
			cell, _ := excelize.CoordinatesToCellName(col, line)
			return f.SetCellValue(workbookSheet, cell, v)
		}
		enteredBy := ""
		if r.EnteredBy != nil {
			enteredBy = *r.EnteredBy
		}
		values := []any{
			r.UploadIndex,
			r.SKU,
			r.Description,
			cellInt(r.OnHand),
			cellInt(r.Count),
			cellInt(entries.Difference(r.Count, r.OnHand)),
			string(entries.Classify(r.Count, r.OnHand)),
			r.AssignedTo,
			enteredBy,
		}
		for col, v := range values {
			if err := write(col+1, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", line, err)
			}
		}
	}

	_ = f.SetColWidth(workbookSheet, "A", "A", 12)
	_ = f.SetColWidth(workbookSheet, "B", "B", 20)
	_ = f.SetColWidth(workbookSheet, "C", "C", 40)
	_ = f.SetColWidth(workbookSheet, "D", "F", 12)
	_ = f.SetColWidth(workbookSheet, "G", "I", 14)
	_ = f.SetPanes(workbookSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// cellInt leaves a blank cell for a missing number.
func cellInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
