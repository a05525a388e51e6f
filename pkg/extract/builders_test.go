package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

func sampleData() *connector.TabularData {
	return &connector.TabularData{
		Columns: []connector.Column{
			{Name: "id", Kind: connector.KindInt64, Values: []any{int64(1), int64(2)}},
			{Name: "name", Kind: connector.KindObject, Values: []any{"a", nil}},
		},
	}
}

func TestBuildDatabaseInfo(t *testing.T) {
	info := models.SourceInfo{
		Name:          "sales_report.xlsx",
		Path:          "/data/sales_report.xlsx",
		SizeBytes:     2048,
		Extension:     ".xlsx",
		ModifiedEpoch: 1700000000,
	}

	db := BuildDatabaseInfo(info, 3)

	assert.Equal(t, "sales_report", db.Name)
	assert.Equal(t, "/data/sales_report.xlsx", db.SourcePath)
	assert.Equal(t, int64(2048), db.SizeBytes)
	assert.Equal(t, "xlsx", db.SourceKind)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), db.ModifiedAt)
	assert.Equal(t, 3, db.TableCount)
}

func TestBuildDatabaseInfo_StripsOnlySupportedExtensions(t *testing.T) {
	tests := []struct {
		fileName string
		expected string
	}{
		{"data.xlsx", "data"},
		{"data.XLSX", "data"},
		{"data.xls", "data"},
		{"data.csv", "data"},
		{"archive.tar.csv", "archive.tar"},
		{"data.parquet", "data.parquet"},
		{"data", "data"},
	}
	for _, tt := range tests {
		db := BuildDatabaseInfo(models.SourceInfo{Name: tt.fileName}, 0)
		assert.Equal(t, tt.expected, db.Name, "file %s", tt.fileName)
	}
}

func TestBuildSchemaInfo(t *testing.T) {
	db := models.DatabaseInfo{
		Name:       "sales",
		SourcePath: "/data/sales.csv",
		TableCount: 2,
	}

	schema := BuildSchemaInfo(db)

	assert.Equal(t, "sales", schema.Name)
	assert.Equal(t, "sales", schema.DatabaseName)
	assert.Equal(t, 2, schema.TableCount)
	assert.Equal(t, "/data/sales.csv", schema.SourcePath)
}

func TestBuildTableInfo(t *testing.T) {
	table := BuildTableInfo("orders", sampleData(), "sales")

	assert.Equal(t, "orders", table.Name)
	assert.Equal(t, "sales", table.SchemaName)
	assert.Equal(t, 2, table.RowCount)
	assert.Equal(t, 2, table.ColumnCount)
	assert.True(t, table.HasHeader)
	assert.Equal(t, map[string]string{
		"id":   "int64",
		"name": "object",
	}, table.ColumnTypeMap)
	assert.Greater(t, table.MemoryEstimateBytes, int64(0))
}

func TestBuildTableInfo_EmptyTable(t *testing.T) {
	table := BuildTableInfo("empty", &connector.TabularData{}, "sales")

	assert.Equal(t, 0, table.RowCount)
	assert.Equal(t, 0, table.ColumnCount)
	assert.Equal(t, int64(0), table.MemoryEstimateBytes)
}

// The estimate need not be exact but must be deterministic for
// identical input.
func TestEstimateMemoryBytes_Deterministic(t *testing.T) {
	first := estimateMemoryBytes(sampleData())
	second := estimateMemoryBytes(sampleData())
	assert.Equal(t, first, second)
}
