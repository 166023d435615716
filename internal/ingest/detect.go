package ingest

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies how an upload is decoded.
type Format string

const (
	FormatUnknown       Format = ""
	FormatCSV           Format = "csv"
	FormatXLSX          Format = "xlsx"
	FormatSpreadsheetML Format = "spreadsheetml"
	FormatLegacyXLS     Format = "xls"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
	mimeOLE  = "application/x-ole-storage"
	mimeXLS  = "application/vnd.ms-excel"
	mimeXML  = "text/xml"
	mimeXML2 = "application/xml"
	mimeCSV  = "text/csv"
	mimeText = "text/plain"
)

// DetectFormat sniffs content first and falls back to the file extension.
// Many ".xls" exports are really SpreadsheetML or CSV, so the name alone is
// not trusted.
func DetectFormat(filename string, content []byte) Format {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	mt := mimetype.Detect(content)

	switch {
	case isMIME(mt, mimeXLSX):
		return FormatXLSX
	case isMIME(mt, mimeXLS), isMIME(mt, mimeOLE):
		return FormatLegacyXLS
	case isMIME(mt, mimeZip):
		if ext == ".xlsx" {
			return FormatXLSX
		}
		return FormatUnknown
	case isMIME(mt, mimeXML), isMIME(mt, mimeXML2):
		return FormatSpreadsheetML
	case isMIME(mt, mimeCSV):
		return FormatCSV
	case isMIME(mt, mimeText):
		switch ext {
		case ".csv", ".txt", ".xls":
			return FormatCSV
		}
	}

	switch ext {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".xml":
		return FormatSpreadsheetML
	}
	return FormatUnknown
}

func isMIME(mt *mimetype.MIME, want string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}
