package extract

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// BuildDatabaseInfo derives the database-level record from the source
// metadata. The database name is the file's base name with a supported
// extension stripped; unknown extensions are kept in the name.
func BuildDatabaseInfo(info models.SourceInfo, tableCount int) models.DatabaseInfo {
	return models.DatabaseInfo{
		Name:       databaseName(info.Name),
		SourcePath: info.Path,
		SizeBytes:  info.SizeBytes,
		SourceKind: strings.TrimPrefix(info.Extension, "."),
		ModifiedAt: time.Unix(info.ModifiedEpoch, 0).UTC(),
		TableCount: tableCount,
	}
}

// BuildSchemaInfo derives the single implicit schema, named after the
// database.
func BuildSchemaInfo(db models.DatabaseInfo) models.SchemaInfo {
	return models.SchemaInfo{
		Name:         db.Name,
		DatabaseName: db.Name,
		TableCount:   db.TableCount,
		SourcePath:   db.SourcePath,
	}
}

// BuildTableInfo derives the table-level record from loaded tabular data.
// HasHeader is always true: the connector only exposes named columns.
func BuildTableInfo(name string, data *connector.TabularData, schemaName string) models.TableInfo {
	typeMap := make(map[string]string, data.ColumnCount())
	for _, col := range data.Columns {
		typeMap[col.Name] = string(col.Kind)
	}
	return models.TableInfo{
		Name:                name,
		SchemaName:          schemaName,
		RowCount:            data.RowCount(),
		ColumnCount:         data.ColumnCount(),
		HasHeader:           true,
		ColumnTypeMap:       typeMap,
		MemoryEstimateBytes: estimateMemoryBytes(data),
	}
}

func databaseName(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, supported := range connector.SupportedExtensions {
		if ext == supported {
			return fileName[:len(fileName)-len(ext)]
		}
	}
	return fileName
}

// estimateMemoryBytes is a deterministic best-effort estimate of the
// in-memory footprint: fixed widths per scalar kind, string header plus
// byte length for text cells.
func estimateMemoryBytes(data *connector.TabularData) int64 {
	var total int64
	for _, col := range data.Columns {
		for _, v := range col.Values {
			switch s := v.(type) {
			case nil:
				total += 8
			case bool:
				total += 1
			case string:
				total += 16 + int64(len(s))
			default:
				total += 8
			}
		}
	}
	return total
}
