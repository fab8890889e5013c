package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet that holds the extracted records.
const SheetName = "Sheet1"

func encodeXLSX(columns []string, rows []map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if len(columns) > 0 {
		if err := writeRow(f, 1, columns); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
		if err := styleHeader(f, len(columns)); err != nil {
			return nil, fmt.Errorf("styling header: %w", err)
		}
	}
	for i, row := range rows {
		if err := writeRow(f, i+2, cells(columns, row)); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRow stores every value as a string cell so numeric-looking text keeps
// its exact form.
func writeRow(f *excelize.File, rowNum int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func styleHeader(f *excelize.File, ncols int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(ncols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, "A1", last, style)
}

// Table is the logical content of a spreadsheet read back from disk.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadXLSX decodes an artifact produced by Emit. Rows are padded to the
// header width because trailing empty cells are not stored.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	all, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	t := &Table{Columns: []string{}, Rows: [][]string{}}
	if len(all) == 0 {
		return t, nil
	}
	t.Columns = all[0]
	for _, row := range all[1:] {
		padded := make([]string, len(t.Columns))
		copy(padded, row)
		t.Rows = append(t.Rows, padded)
	}
	return t, nil
}
