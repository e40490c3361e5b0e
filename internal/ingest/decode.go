// Package ingest decodes uploaded CSV and XLSX files into source tables.
//
// The decoder guarantees the core's ingestion contract: headers are
// cleaned and trimmed, rows are rectangular (padded or truncated to the
// header length), and blank rows never reach the pipeline. Decode
// failures are reported as errors so callers can skip the file and
// continue with the rest of the batch.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/procdata/rationalizer/internal/core"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupported is returned for file extensions the decoder cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("empty file")

// Decode reads an uploaded file into a SourceTable based on its
// extension. Supported types: .csv, .xlsx, .xlsm.
func Decode(fileName string, data []byte) (core.SourceTable, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return decodeCSV(fileName, data)
	case ".xlsx", ".xlsm":
		return decodeXLSX(fileName, data)
	default:
		return core.SourceTable{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(fileName))
	}
}

func decodeCSV(fileName string, data []byte) (core.SourceTable, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return core.SourceTable{}, fmt.Errorf("parse csv: %w", err)
	}
	return buildTable(fileName, records)
}

func decodeXLSX(fileName string, data []byte) (core.SourceTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return core.SourceTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return core.SourceTable{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return buildTable(fileName, rows)
}

// buildTable turns a raw record grid into a SourceTable: the first row
// becomes the cleaned header, data rows are cleaned cell by cell,
// padded or truncated to the header length, and blank rows are dropped.
func buildTable(fileName string, records [][]string) (core.SourceTable, error) {
	if len(records) == 0 {
		return core.SourceTable{}, ErrEmptyFile
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = CleanCell(h)
	}
	if allEmpty(headers) {
		return core.SourceTable{}, ErrEmptyFile
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		for i := range headers {
			if i < len(rec) {
				row[i] = CleanCell(rec[i])
			}
		}
		if allEmpty(row) {
			continue
		}
		rows = append(rows, row)
	}

	return core.SourceTable{
		SourceName: filepath.Base(fileName),
		Headers:    headers,
		Rows:       rows,
	}, nil
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// NFKC-normalizes the text, trims whitespace, unwraps Excel formula
// strings (="..."), and strips stray surrounding quotes.
func CleanCell(s string) string {
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) > 2 {
		s = s[2 : len(s)-1]
	} else {
		s = strings.TrimPrefix(s, "=")
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode
// replacement rune so the CSV reader never chokes on mixed encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
