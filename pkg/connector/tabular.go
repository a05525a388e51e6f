package connector

import (
	"strconv"
	"strings"
	"time"
)

// StorageKind is the observed storage type of a column, using the
// pandas-style dtype names the downstream catalog expects.
type StorageKind string

const (
	KindInt64    StorageKind = "int64"
	KindFloat64  StorageKind = "float64"
	KindBool     StorageKind = "bool"
	KindDatetime StorageKind = "datetime64[ns]"
	KindObject   StorageKind = "object"
)

// Column is one named column of typed cells. Values holds int64, float64,
// bool, time.Time or string depending on Kind; nil marks a null cell.
type Column struct {
	Name   string
	Kind   StorageKind
	Values []any
}

// TabularData is an ordered set of length-aligned columns.
type TabularData struct {
	Columns []Column
}

// RowCount returns the shared column length, 0 for an empty table.
func (t *TabularData) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnCount returns the number of columns.
func (t *TabularData) ColumnCount() int {
	return len(t.Columns)
}

// ColumnNames returns the column names in order.
func (t *TabularData) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// buildTable converts raw string rows (header + records) into typed
// columns. Rows shorter than the header are padded with nulls; cells
// beyond the header are dropped. Inference is best-effort and never
// fails: a column that doesn't parse uniformly stays an object column
// with its raw strings.
func buildTable(header []string, records [][]string) *TabularData {
	data := &TabularData{Columns: make([]Column, 0, len(header))}
	for i, name := range header {
		raw := make([]string, 0, len(records))
		for _, rec := range records {
			if i < len(rec) {
				raw = append(raw, rec[i])
			} else {
				raw = append(raw, "")
			}
		}
		data.Columns = append(data.Columns, inferColumn(name, raw))
	}
	return data
}

// inferColumn classifies a raw string column into a storage kind and
// converts its cells. Empty cells are nulls. A column is int64 iff every
// non-null cell parses as an integer; float64 when all cells are numeric
// with at least one fractional value; bool and datetime64 likewise require
// every non-null cell to parse. Anything mixed, and any all-null column,
// is object.
func inferColumn(name string, raw []string) Column {
	allInt := true
	allFloat := true
	allBool := true
	allDatetime := true
	nonNull := 0

	for _, cell := range raw {
		if cell == "" {
			continue
		}
		nonNull++
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			allFloat = false
		}
		if !isBoolCell(cell) {
			allBool = false
		}
		if _, ok := parseDatetime(cell); !ok {
			allDatetime = false
		}
	}

	kind := KindObject
	if nonNull > 0 {
		switch {
		case allBool:
			kind = KindBool
		case allInt:
			kind = KindInt64
		case allFloat:
			kind = KindFloat64
		case allDatetime:
			kind = KindDatetime
		}
	}

	values := make([]any, len(raw))
	for i, cell := range raw {
		if cell == "" {
			values[i] = nil
			continue
		}
		switch kind {
		case KindInt64:
			n, _ := strconv.ParseInt(cell, 10, 64)
			values[i] = n
		case KindFloat64:
			f, _ := strconv.ParseFloat(cell, 64)
			values[i] = f
		case KindBool:
			values[i] = parseBoolCell(cell)
		case KindDatetime:
			t, _ := parseDatetime(cell)
			values[i] = t
		default:
			values[i] = cell
		}
	}

	return Column{Name: name, Kind: kind, Values: values}
}

func isBoolCell(cell string) bool {
	switch strings.ToLower(cell) {
	case "true", "false":
		return true
	}
	return false
}

func parseBoolCell(cell string) bool {
	return strings.EqualFold(cell, "true")
}

func parseDatetime(cell string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
