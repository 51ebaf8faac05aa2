// Package xlsxsvc writes the exported tables as Excel workbooks.
package xlsxsvc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/schoolrecords/sf10/core"
)

const (
	defaultSheet = "Sheet1"
	columnWidth  = 20
)

var errNoSheet = errors.New("workbook needs at least one sheet")

type Writer struct{}

var _ core.SpreadsheetWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{}
}

// WriteSheets writes one worksheet per sheet, in order. Header rows are bold.
func (wr *Writer) WriteSheets(w io.Writer, sheets ...core.Sheet) (err error) {
	if len(sheets) == 0 {
		return errNoSheet
	}

	f := excelize.NewFile()
	defer func() {
		if cErr := f.Close(); err == nil && cErr != nil {
			err = errors.Wrap(cErr, "closing workbook")
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err = f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return errors.Wrapf(err, "naming sheet %q", sheet.Name)
			}
		} else if _, err = f.NewSheet(sheet.Name); err != nil {
			return errors.Wrapf(err, "adding sheet %q", sheet.Name)
		}
		if err = writeSheet(f, sheet, bold); err != nil {
			return errors.Wrapf(err, "writing sheet %q", sheet.Name)
		}
	}
	f.SetActiveSheet(0)

	return errors.Wrap(f.Write(w), "writing workbook")
}

func writeSheet(f *excelize.File, sheet core.Sheet, headerStyle int) error {
	row := 1
	if len(sheet.Header) > 0 {
		if err := setRow(f, sheet.Name, row, sheet.Header); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet.Name, row, row, headerStyle); err != nil {
			return err
		}
		lastCol, err := excelize.ColumnNumberToName(len(sheet.Header))
		if err != nil {
			return err
		}
		if err = f.SetColWidth(sheet.Name, "A", lastCol, columnWidth); err != nil {
			return err
		}
		row++
	}
	for _, values := range sheet.Rows {
		if err := setRow(f, sheet.Name, row, values); err != nil {
			return err
		}
		row++
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
