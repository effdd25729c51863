package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Workbook writes each table to its own sheet, in order, with a bold header
// row. The first table's sheet is active.
func Workbook(tables ...Table) (*excelize.File, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("workbook: no tables")
	}
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, t := range tables {
		idx, err := f.NewSheet(t.Name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("workbook: sheet %s: %w", t.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeSheet(f, t, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("workbook: sheet %s: %w", t.Name, err)
		}
	}
	if tables[0].Name != defaultSheet {
		f.DeleteSheet(defaultSheet)
	}
	return f, nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	header := make([]any, len(t.Header))
	for j, h := range t.Header {
		header[j] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(t.Name, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = sheetCell(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

func sheetCell(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format(dateLayout)
	}
	return v
}

// SaveWorkbook writes tables to an xlsx file at path.
func SaveWorkbook(path string, overwrite bool, tables ...Table) error {
	f, err := Workbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := create(path, overwrite)
	if err != nil {
		return err
	}
	if err := WriteWorkbook(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteWorkbook streams a workbook to w.
func WriteWorkbook(w io.Writer, f *excelize.File) error {
	_, err := f.WriteTo(w)
	return err
}
