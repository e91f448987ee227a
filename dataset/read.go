package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a raw table with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadFile reads a CSV file or the first sheet of an XLSX file,
// chosen by the extension.
func ReadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		defer f.Close()
		return readExcel(f)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	}
}

// ReadCSV reads a comma separated table.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return newTable(rows)
}

// ReadExcel reads the first sheet of an XLSX workbook.
func ReadExcel(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	return readExcel(f)
}

// readExcel reads the first sheet.
func readExcel(f *excelize.File) (*Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	log.Debugf("Read %d rows from sheet %s", len(rows), sheets[0])
	return newTable(rows)
}

// newTable trims cells and splits off the header.
func newTable(rows [][]string) (*Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("table must have a header row and at least one data row")
	}
	t := &Table{Header: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		t.Header[i] = strings.TrimSpace(h)
	}
	for _, row := range rows[1:] {
		empty := true
		r := make([]string, len(t.Header))
		for j, cell := range row {
			if j < len(r) {
				r[j] = strings.TrimSpace(cell)
				if r[j] != "" {
					empty = false
				}
			}
		}
		if !empty {
			t.Rows = append(t.Rows, r)
		}
	}
	return t, nil
}
