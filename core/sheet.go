package core

import "io"

// Sheet is a tabular export: one header row followed by data rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// SpreadsheetWriter is any service that can encode sheets as a workbook.
type SpreadsheetWriter interface {
	WriteSheets(w io.Writer, sheets ...Sheet) error
}
