package connector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/apperrors"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/testhelpers"
)

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, err := Open("report.pdf", zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedSource))
}

func TestOpen_SelectsImplementation(t *testing.T) {
	csvSource, err := Open("data.csv", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, csvSource)

	wbSource, err := Open("data.xlsx", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &WorkbookSource{}, wbSource)
}

func TestCSVSource_MissingFile(t *testing.T) {
	source, err := Open("/nonexistent/data.csv", zap.NewNop())
	require.NoError(t, err)

	err = source.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceNotFound))
}

func TestCSVSource_NotConnected(t *testing.T) {
	source := newCSVSource("data.csv", zap.NewNop())

	_, err := source.ListTables(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrNotConnected))

	_, err = source.GetTable(context.Background(), csvTableName)
	assert.True(t, errors.Is(err, apperrors.ErrNotConnected))
}

func TestCSVSource_ReadsSingleTable(t *testing.T) {
	ctx := context.Background()
	path := testhelpers.WriteCSV(t, t.TempDir(), "orders.csv",
		[]string{"id", "amount", "city"},
		[][]any{
			{1, 9.5, "Oslo"},
			{2, nil, "Lisbon"},
			{3, 12.25, nil},
		})

	source, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, source.Connect(ctx))
	defer source.Disconnect()

	tables, err := source.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1"}, tables)

	info := source.SourceMetadata()
	assert.Equal(t, "orders.csv", info.Name)
	assert.Equal(t, ".csv", info.Extension)
	assert.Greater(t, info.SizeBytes, int64(0))

	data, err := source.GetTable(ctx, "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 3, data.RowCount())
	assert.Equal(t, []string{"id", "amount", "city"}, data.ColumnNames())

	assert.Equal(t, KindInt64, data.Columns[0].Kind)
	assert.Equal(t, KindFloat64, data.Columns[1].Kind)
	assert.Equal(t, KindObject, data.Columns[2].Kind)

	assert.Equal(t, int64(1), data.Columns[0].Values[0])
	assert.Nil(t, data.Columns[1].Values[1])
	assert.Nil(t, data.Columns[2].Values[2])
}

func TestCSVSource_UnknownTable(t *testing.T) {
	ctx := context.Background()
	path := testhelpers.WriteCSV(t, t.TempDir(), "d.csv", []string{"a"}, [][]any{{1}})

	source, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, source.Connect(ctx))
	defer source.Disconnect()

	_, err = source.GetTable(ctx, "Sheet2")
	assert.True(t, errors.Is(err, apperrors.ErrTableNotFound))
}

func TestWorkbookSource_ReadsSheets(t *testing.T) {
	ctx := context.Background()
	path := testhelpers.WriteWorkbook(t, t.TempDir(), "book.xlsx", []testhelpers.Sheet{
		{
			Name:   "Orders",
			Header: []string{"id", "flag"},
			Rows: [][]any{
				{1, true},
				{2, false},
			},
		},
		// The null row sits between data rows; a trailing empty row
		// would be trimmed on read.
		{
			Name:   "Notes",
			Header: []string{"text"},
			Rows: [][]any{
				{"hello"},
				{nil},
				{"world"},
			},
		},
	})

	source, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, source.Connect(ctx))
	defer source.Disconnect()

	tables, err := source.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders", "Notes"}, tables)

	orders, err := source.GetTable(ctx, "Orders")
	require.NoError(t, err)
	assert.Equal(t, 2, orders.RowCount())
	assert.Equal(t, KindInt64, orders.Columns[0].Kind)
	assert.Equal(t, KindBool, orders.Columns[1].Kind)
	assert.Equal(t, true, orders.Columns[1].Values[0])

	notes, err := source.GetTable(ctx, "Notes")
	require.NoError(t, err)
	assert.Equal(t, 3, notes.RowCount())
	assert.Equal(t, KindObject, notes.Columns[0].Kind)
	assert.Equal(t, "hello", notes.Columns[0].Values[0])
	assert.Nil(t, notes.Columns[0].Values[1])
	assert.Equal(t, "world", notes.Columns[0].Values[2])
}

// The factory accepts .xls, but the legacy binary format cannot be
// parsed; Connect must say so instead of a generic open failure.
func TestWorkbookSource_LegacyXlsUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.xls")
	require.NoError(t, os.WriteFile(path, []byte("\xd0\xcf\x11\xe0 not a zip"), 0o644))

	source, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &WorkbookSource{}, source)

	err = source.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy xls format is not readable")
}

func TestWorkbookSource_MissingFile(t *testing.T) {
	source, err := Open("/nonexistent/book.xlsx", zap.NewNop())
	require.NoError(t, err)

	err = source.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceNotFound))
}

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		expected StorageKind
	}{
		{"all integers", []string{"1", "2", "3"}, KindInt64},
		{"integers with nulls", []string{"1", "", "3"}, KindInt64},
		{"mixed numeric", []string{"1", "2.5"}, KindFloat64},
		{"all floats", []string{"1.5", "2.5"}, KindFloat64},
		{"booleans", []string{"true", "False"}, KindBool},
		{"dates", []string{"2024-01-15", "2024-02-01"}, KindDatetime},
		{"text", []string{"a", "b"}, KindObject},
		{"mixed text and number", []string{"1", "abc"}, KindObject},
		{"all null", []string{"", ""}, KindObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := inferColumn("c", tt.raw)
			assert.Equal(t, tt.expected, col.Kind)
		})
	}
}

func TestInferColumn_CoercesIntsInFloatColumn(t *testing.T) {
	col := inferColumn("c", []string{"1", "2.5"})
	assert.Equal(t, 1.0, col.Values[0])
	assert.Equal(t, 2.5, col.Values[1])
}

func TestInferColumn_ParsesDatetime(t *testing.T) {
	col := inferColumn("c", []string{"2024-01-15"})
	require.Equal(t, KindDatetime, col.Kind)
	parsed, ok := col.Values[0].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, time.January, parsed.Month())
}

func TestBuildTable_PadsRaggedRows(t *testing.T) {
	data := buildTable([]string{"a", "b"}, [][]string{
		{"1", "x"},
		{"2"},
	})
	assert.Equal(t, 2, data.RowCount())
	assert.Equal(t, "x", data.Columns[1].Values[0])
	assert.Nil(t, data.Columns[1].Values[1])
}
