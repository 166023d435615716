package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"io"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false

	var out [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, ingestErr("read csv: %v", err)
		}
		out = append(out, record)
	}
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, ingestErr("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ingestErr("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, ingestErr("read sheet %q: %v", sheets[0], err)
	}
	return rows, nil
}

type xmlWorkbook struct {
	XMLName    xml.Name       `xml:"Workbook"`
	Worksheets []xmlWorksheet `xml:"Worksheet"`
}

type xmlWorksheet struct {
	Name  string    `xml:"Name,attr"`
	Table *xmlTable `xml:"Table"`
}

type xmlTable struct {
	Rows []xmlRow `xml:"Row"`
}

type xmlRow struct {
	Index int       `xml:"Index,attr"`
	Cells []xmlCell `xml:"Cell"`
}

type xmlCell struct {
	Index int     `xml:"Index,attr"`
	Data  xmlData `xml:"Data"`
}

type xmlData struct {
	Value string `xml:",chardata"`
}

// readSpreadsheetML decodes the Excel 2003 XML format. ss:Index on rows and
// cells skips ahead, leaving blank rows or cells in between.
func readSpreadsheetML(content []byte) ([][]string, error) {
	var wb xmlWorkbook
	if err := xml.Unmarshal(content, &wb); err != nil {
		return nil, ingestErr("parse spreadsheet xml: %v", err)
	}
	if len(wb.Worksheets) == 0 || wb.Worksheets[0].Table == nil {
		return nil, ingestErr("spreadsheet xml has no worksheet table")
	}

	var out [][]string
	for _, row := range wb.Worksheets[0].Table.Rows {
		for row.Index > 0 && len(out) < row.Index-1 {
			out = append(out, nil)
		}
		var cells []string
		for _, cell := range row.Cells {
			for cell.Index > 0 && len(cells) < cell.Index-1 {
				cells = append(cells, "")
			}
			cells = append(cells, cell.Data.Value)
		}
		out = append(out, cells)
	}
	return out, nil
}
