package testhelpers

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet describes one fixture table: a header row plus typed cell rows.
// Nil cells become empty (null) cells in the written file.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// WriteWorkbook writes a fixture workbook with the given sheets into
// dir and returns its path.
func WriteWorkbook(t *testing.T, dir, filename string, sheets []Sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				t.Fatalf("create sheet: %v", err)
			}
		}

		header := make([]any, len(sheet.Header))
		for j, h := range sheet.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
			t.Fatalf("write header: %v", err)
		}
		for r, row := range sheet.Rows {
			cell := fmt.Sprintf("A%d", r+2)
			if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
				t.Fatalf("write row: %v", err)
			}
		}
	}

	path := filepath.Join(dir, filename)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WriteCSV writes a fixture delimited file into dir and returns its
// path. Nil cells become empty fields.
func WriteCSV(t *testing.T, dir, filename string, header []string, rows [][]any) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, cell := range row {
			if cell == nil {
				record[i] = ""
				continue
			}
			record[i] = fmt.Sprint(cell)
		}
		if err := w.Write(record); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush csv: %v", err)
	}
	return path
}
