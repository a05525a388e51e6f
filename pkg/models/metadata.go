package models

import "time"

// ============================================================================
// Source Metadata
// ============================================================================

// SourceInfo describes the raw source file as reported by the connector.
type SourceInfo struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	SizeBytes     int64  `json:"size_bytes"`
	Extension     string `json:"extension"`
	ModifiedEpoch int64  `json:"modified_epoch"`
}

// DatabaseInfo is the database-level metadata record, one per run.
type DatabaseInfo struct {
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path"`
	SizeBytes  int64     `json:"size_bytes"`
	SourceKind string    `json:"source_kind"`
	ModifiedAt time.Time `json:"modified_at"`
	TableCount int       `json:"table_count"`
}

// SchemaInfo is the schema-level metadata record. The engine models exactly
// one implicit schema per source, named after the database.
type SchemaInfo struct {
	Name         string `json:"name"`
	DatabaseName string `json:"database_name"`
	TableCount   int    `json:"table_count"`
	SourcePath   string `json:"source_path"`
}

// TableInfo is the table-level metadata record, one per loaded table.
type TableInfo struct {
	Name                string            `json:"name"`
	SchemaName          string            `json:"schema_name"`
	RowCount            int               `json:"row_count"`
	ColumnCount         int               `json:"column_count"`
	HasHeader           bool              `json:"has_header"`
	ColumnTypeMap       map[string]string `json:"column_type_map"`
	MemoryEstimateBytes int64             `json:"memory_estimate_bytes"`
}

// ============================================================================
// Column Profile
// ============================================================================

// InferredType is the catalog-facing column type classification.
type InferredType string

const (
	TypeInteger  InferredType = "INTEGER"
	TypeDecimal  InferredType = "DECIMAL"
	TypeVarchar  InferredType = "VARCHAR"
	TypeBoolean  InferredType = "BOOLEAN"
	TypeDatetime InferredType = "DATETIME"
)

// QualityLevel classifies a column's completeness.
type QualityLevel string

const (
	QualityHigh   QualityLevel = "HIGH"
	QualityMedium QualityLevel = "MEDIUM"
	QualityLow    QualityLevel = "LOW"
)

// NumericStats holds descriptive statistics over a numeric column's
// non-null values.
type NumericStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// StringStats holds length statistics over a textual column's non-null
// values.
type StringStats struct {
	AvgLength float64 `json:"avg_length"`
	MaxLength int     `json:"max_length"`
	MinLength int     `json:"min_length"`
}

// ColumnProfile is the per-column statistical summary. NumericStats and
// StringStats are mutually exclusive; at most one is ever set.
type ColumnProfile struct {
	TableName       string       `json:"table_name"`
	SchemaName      string       `json:"schema_name"`
	ColumnName      string       `json:"column_name"`
	OrdinalPosition int          `json:"ordinal_position"`
	InferredType    InferredType `json:"inferred_type"`

	// IsNullable is "YES" or "NO", matching the catalog wire convention.
	IsNullable string `json:"is_nullable"`

	TotalCount       int     `json:"total_count"`
	NullCount        int     `json:"null_count"`
	NullPercentage   float64 `json:"null_percentage"`
	UniqueCount      int     `json:"unique_count"`
	UniquePercentage float64 `json:"unique_percentage"`

	QualityLevel QualityLevel `json:"quality_level"`

	NumericStats *NumericStats `json:"numeric_stats,omitempty"`
	StringStats  *StringStats  `json:"string_stats,omitempty"`
}
