package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// Source-type labels stamped on every entity's custom attributes.
const (
	sourceTypeDatabase      = "Excel Workbook"
	sourceTypeSchema        = "Excel Schema"
	sourceTypeTable         = "Excel Sheet"
	sourceTypeColumn        = "Excel Column"
	sourceTypeVisualization = "Excel Visualization"
)

// mapped is a mapper's output before envelope wrapping.
type mapped struct {
	attributes       any
	customAttributes any
}

// ============================================================================
// Typed attribute variants (serialized to the wire maps at the boundary)
// ============================================================================

type databaseAttributes struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualifiedName"`
	DisplayName   string `json:"displayName"`
}

type databaseCustomAttributes struct {
	FilePath     string `json:"filePath"`
	FileSize     int64  `json:"fileSize"`
	FileType     string `json:"fileType"`
	ModifiedDate string `json:"modifiedDate"`
	SheetCount   int    `json:"sheetCount"`
	SourceType   string `json:"sourceType"`
}

type schemaAttributes struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualifiedName"`
	DisplayName   string `json:"displayName"`
	DatabaseName  string `json:"databaseName"`
}

type schemaCustomAttributes struct {
	TableCount int    `json:"tableCount"`
	SourcePath string `json:"sourcePath"`
	SourceType string `json:"sourceType"`
}

type tableAttributes struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualifiedName"`
	DisplayName   string `json:"displayName"`
	SchemaName    string `json:"schemaName"`
}

type tableCustomAttributes struct {
	SchemaName       string            `json:"schemaName"`
	RowCount         int               `json:"rowCount"`
	ColumnCount      int               `json:"columnCount"`
	HasHeader        bool              `json:"hasHeader"`
	MemoryUsage      int64             `json:"memoryUsage"`
	ColumnTypes      map[string]string `json:"columnTypes"`
	DataQualityScore float64           `json:"dataQualityScore"`
	SourceType       string            `json:"sourceType"`
}

type columnAttributes struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualifiedName"`
	DisplayName   string `json:"displayName"`
	DataType      string `json:"dataType"`
	IsNullable    bool   `json:"isNullable"`
	Position      int    `json:"position"`
}

// The optional stat attributes are flat on the wire: a numeric column
// carries minValue/maxValue/meanValue, a textual one carries
// averageLength/maxLength/minLength, and neither block appears for the
// other kinds.
type columnCustomAttributes struct {
	TableName        string  `json:"tableName"`
	SchemaName       string  `json:"schemaName"`
	TotalCount       int     `json:"totalCount"`
	NullCount        int     `json:"nullCount"`
	NullPercentage   float64 `json:"nullPercentage"`
	UniqueCount      int     `json:"uniqueCount"`
	UniquePercentage float64 `json:"uniquePercentage"`
	QualityLevel     string  `json:"qualityLevel"`

	MinValue  *float64 `json:"minValue,omitempty"`
	MaxValue  *float64 `json:"maxValue,omitempty"`
	MeanValue *float64 `json:"meanValue,omitempty"`

	AverageLength *float64 `json:"averageLength,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty"`
	MinLength     *int     `json:"minLength,omitempty"`

	SourceType string `json:"sourceType"`
}

type visualizationAttributes struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualifiedName"`
	DisplayName   string `json:"displayName"`
}

type visualizationCustomAttributes struct {
	VisualizationType string `json:"visualizationType"`
	DataSource        string `json:"dataSource"`
	CreatedDate       string `json:"createdDate"`
	SourceType        string `json:"sourceType"`
}

// ============================================================================
// Mappers
// ============================================================================

func (t *Transformer) mapDatabase(db models.DatabaseInfo) (mapped, error) {
	if db.Name == "" {
		return mapped{}, fmt.Errorf("database record has no name")
	}
	return mapped{
		attributes: databaseAttributes{
			Name:          db.Name,
			QualifiedName: QualifiedName(db.Name),
			DisplayName:   DisplayName(db.Name),
		},
		customAttributes: databaseCustomAttributes{
			FilePath:     db.SourcePath,
			FileSize:     db.SizeBytes,
			FileType:     db.SourceKind,
			ModifiedDate: db.ModifiedAt.Format(time.RFC3339),
			SheetCount:   db.TableCount,
			SourceType:   sourceTypeDatabase,
		},
	}, nil
}

func (t *Transformer) mapSchema(schema models.SchemaInfo) (mapped, error) {
	if schema.Name == "" {
		return mapped{}, fmt.Errorf("schema record has no name")
	}
	return mapped{
		attributes: schemaAttributes{
			Name:          schema.Name,
			QualifiedName: QualifiedName(schema.DatabaseName, schema.Name),
			DisplayName:   DisplayName(schema.Name),
			DatabaseName:  schema.DatabaseName,
		},
		customAttributes: schemaCustomAttributes{
			TableCount: schema.TableCount,
			SourcePath: schema.SourcePath,
			SourceType: sourceTypeSchema,
		},
	}, nil
}

func (t *Transformer) mapTable(table models.TableInfo) (mapped, error) {
	if table.Name == "" {
		return mapped{}, fmt.Errorf("table record has no name")
	}
	return mapped{
		attributes: tableAttributes{
			Name:          table.Name,
			QualifiedName: QualifiedName(table.SchemaName, table.Name),
			DisplayName:   DisplayName(table.Name),
			SchemaName:    table.SchemaName,
		},
		customAttributes: tableCustomAttributes{
			SchemaName:       table.SchemaName,
			RowCount:         table.RowCount,
			ColumnCount:      table.ColumnCount,
			HasHeader:        table.HasHeader,
			MemoryUsage:      table.MemoryEstimateBytes,
			ColumnTypes:      table.ColumnTypeMap,
			DataQualityScore: dataQualityScore(table.RowCount, table.ColumnCount),
			SourceType:       sourceTypeTable,
		},
	}, nil
}

func (t *Transformer) mapColumn(col models.ColumnProfile) (mapped, error) {
	if col.ColumnName == "" {
		return mapped{}, fmt.Errorf("column record has no name")
	}
	return mapped{
		attributes: columnAttributes{
			Name:          col.ColumnName,
			QualifiedName: QualifiedName(col.SchemaName, col.TableName, col.ColumnName),
			DisplayName:   DisplayName(col.ColumnName),
			DataType:      string(col.InferredType),
			IsNullable:    col.IsNullable == "YES",
			Position:      col.OrdinalPosition,
		},
		customAttributes: columnCustoms(col),
	}, nil
}

func columnCustoms(col models.ColumnProfile) columnCustomAttributes {
	custom := columnCustomAttributes{
		TableName:        col.TableName,
		SchemaName:       col.SchemaName,
		TotalCount:       col.TotalCount,
		NullCount:        col.NullCount,
		NullPercentage:   col.NullPercentage,
		UniqueCount:      col.UniqueCount,
		UniquePercentage: col.UniquePercentage,
		QualityLevel:     string(columnQualityLevel(col.NullPercentage)),
		SourceType:       sourceTypeColumn,
	}
	if ns := col.NumericStats; ns != nil {
		custom.MinValue = &ns.Min
		custom.MaxValue = &ns.Max
		custom.MeanValue = &ns.Mean
	}
	if ss := col.StringStats; ss != nil {
		custom.AverageLength = &ss.AvgLength
		custom.MaxLength = &ss.MaxLength
		custom.MinLength = &ss.MinLength
	}
	return custom
}

func (t *Transformer) mapVisualization(viz models.VisualizationSpec) (mapped, error) {
	if viz.Title == "" {
		return mapped{}, fmt.Errorf("visualization record has no title")
	}
	payload, err := json.Marshal(viz.Payload)
	if err != nil {
		return mapped{}, fmt.Errorf("failed to serialize chart payload: %w", err)
	}
	return mapped{
		attributes: visualizationAttributes{
			Name:          viz.Title,
			QualifiedName: VisualizationQualifiedName(viz.Title),
			DisplayName:   viz.Title,
		},
		customAttributes: visualizationCustomAttributes{
			VisualizationType: string(viz.Kind),
			DataSource:        string(payload),
			CreatedDate:       t.now().UTC().Format(time.RFC3339),
			SourceType:        sourceTypeVisualization,
		},
	}, nil
}

// ============================================================================
// Derived fields
// ============================================================================

// dataQualityScore scores a table's shape: min(100, rows*cols/1000*10)
// rounded to 2 decimals, 0 when either count is zero.
func dataQualityScore(rowCount, columnCount int) float64 {
	if rowCount == 0 || columnCount == 0 {
		return 0
	}
	score := float64(rowCount) * float64(columnCount) / 1000 * 10
	if score > 100 {
		score = 100
	}
	return math.Round(score*100) / 100
}

// columnQualityLevel recomputes a completeness level on the entity with
// thresholds distinct from the profiler's: over 50% null is LOW, over
// 20% is MEDIUM, else HIGH. The two classifications intentionally
// coexist on the wire.
func columnQualityLevel(nullPct float64) models.QualityLevel {
	switch {
	case nullPct > 50:
		return models.QualityLow
	case nullPct > 20:
		return models.QualityMedium
	default:
		return models.QualityHigh
	}
}
