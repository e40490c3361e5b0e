// Package export serializes a rationalized table for download.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/procdata/rationalizer/internal/core"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single sheet written to exported workbooks.
const SheetName = "Rationalized Data"

// WriteCSV writes the table as CSV with every field double-quote
// wrapped and internal quotes escaped by doubling, header row first.
// encoding/csv only quotes when forced to, so the fixed quote-all
// format is written directly.
func WriteCSV(w io.Writer, t core.Table) error {
	if err := writeCSVRecord(w, t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeCSVRecord(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVRecord(w io.Writer, record []string) error {
	var b strings.Builder
	for i, field := range record {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	return nil
}

// WriteXLSX writes the table as a workbook with a single sheet holding
// the header row followed by the data rows.
func WriteXLSX(w io.Writer, t core.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, t.Headers); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("row %d: %w", rowNum, err)
	}

	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("set row %d: %w", rowNum, err)
	}
	return nil
}
