package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/go-pdf/fpdf"
)

const (
	marginTop    = 25.0
	marginRight  = 12.0
	marginBottom = 20.0
	marginLeft   = 12.0

	fontFamily  = "DejaVu"
	fontSize    = 8.0
	rowHeight   = 7.0
	headerY     = 12.0
	footerInset = 8.0
	gridLine    = 0.3
	headLine    = 0.4
)

// sheetFont is a UTF-8 TrueType face so SKUs outside cp1252 print as written.
//
//go:embed fonts/DejaVuSansCondensed.ttf
var sheetFont []byte

var sheetColumns = [4]string{"SKU", "Count", "SKU", "Count"}

// RowsPerPage is how many body rows fit under the repeated column header
// on a letter page.
func RowsPerPage() int {
	_, h := letterSize()
	usable := h - marginTop - marginBottom
	return int(math.Floor(usable/rowHeight)) - 1
}

// MissingCountsPDF is the worksheet of entries still waiting for a count.
func MissingCountsPDF(rows []models.Entry, user string, now time.Time) ([]byte, error) {
	return worksheetPDF("Counts Needed", skusOf(Missing(rows)), user, now)
}

// AssignedRowsPDF is the worksheet of every entry given to user.
func AssignedRowsPDF(rows []models.Entry, user string, now time.Time) ([]byte, error) {
	var mine []models.Entry
	for _, r := range rows {
		if r.AssignedTo == user {
			mine = append(mine, r)
		}
	}
	return worksheetPDF("Assigned Rows", skusOf(mine), user, now)
}

// HeaderLine is the title printed at the top of every worksheet page.
func HeaderLine(title, user string, now time.Time) string {
	return fmt.Sprintf("%s – %s – User: %s", title, now.Format("01/02/2006"), user)
}

func worksheetPDF(title string, skus []string, user string, now time.Time) ([]byte, error) {
	pdf := renderWorksheet(title, skus, user, now)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderWorksheet(title string, skus []string, user string, now time.Time) *fpdf.Fpdf {
	layout := LayoutSheet(skus, RowsPerPage())

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(0, 0, 0)
	pdf.AddUTF8FontFromBytes(fontFamily, "", sheetFont)

	pageW, pageH := pdf.GetPageSize()
	colW := (pageW - marginLeft - marginRight) / float64(len(sheetColumns))
	header := HeaderLine(title, user, now)

	for i, page := range layout.Pages {
		pdf.AddPage()
		pdf.SetFont(fontFamily, "", fontSize)

		pdf.Text((pageW-pdf.GetStringWidth(header))/2, headerY, header)
		footer := fmt.Sprintf("Page %d of %d", i+1, layout.TotalPages())
		pdf.Text((pageW-pdf.GetStringWidth(footer))/2, pageH-footerInset, footer)

		pdf.SetXY(marginLeft, marginTop)
		pdf.SetLineWidth(headLine)
		for _, col := range sheetColumns {
			pdf.CellFormat(colW, rowHeight, col, "1", 0, "CM", false, 0, "")
		}
		pdf.Ln(rowHeight)

		pdf.SetLineWidth(gridLine)
		for _, r := range page {
			pdf.SetX(marginLeft)
			for _, value := range [4]string{r.Left, "", r.Right, ""} {
				pdf.CellFormat(colW, rowHeight, value, "1", 0, "CM", false, 0, "")
			}
			pdf.Ln(rowHeight)
		}
	}
	return pdf
}

func skusOf(rows []models.Entry) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.SKU
	}
	return out
}

func letterSize() (float64, float64) {
	return 215.9, 279.4
}
