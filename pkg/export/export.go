package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/pipeline"
)

// RunDocument is the generic structured form of a finished run context,
// re-serializable as JSON or YAML for ad-hoc export.
type RunDocument struct {
	DatabaseInfo        *models.DatabaseInfo          `json:"database_info" yaml:"database_info"`
	SchemaInfo          *models.SchemaInfo            `json:"schema_info" yaml:"schema_info"`
	TablesInfo          []models.TableInfo            `json:"tables_info" yaml:"tables_info"`
	ColumnsInfo         []models.ColumnProfile        `json:"columns_info" yaml:"columns_info"`
	Visualizations      []models.VisualizationSpec    `json:"visualizations" yaml:"visualizations"`
	TransformedEntities []models.CatalogEntity        `json:"transformed_entities" yaml:"transformed_entities"`
	ProcessingSummary   map[string]models.StageResult `json:"processing_summary" yaml:"processing_summary"`
}

// BuildDocument flattens a run context into its exportable document.
func BuildDocument(rc *pipeline.RunContext) RunDocument {
	summary := make(map[string]models.StageResult, len(rc.StageResults))
	for name, result := range rc.StageResults {
		summary[string(name)] = result
	}
	return RunDocument{
		DatabaseInfo:        rc.Database,
		SchemaInfo:          rc.Schema,
		TablesInfo:          rc.Tables,
		ColumnsInfo:         rc.Columns,
		Visualizations:      rc.Visualizations,
		TransformedEntities: rc.Entities,
		ProcessingSummary:   summary,
	}
}

// WriteJSON serializes the document as indented JSON.
func WriteJSON(w io.Writer, doc RunDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

// WriteYAML serializes the document as YAML.
func WriteYAML(w io.Writer, doc RunDocument) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

var columnsCSVHeader = []string{
	"schema_name",
	"table_name",
	"column_name",
	"ordinal_position",
	"inferred_type",
	"is_nullable",
	"total_count",
	"null_count",
	"null_percentage",
	"unique_count",
	"unique_percentage",
	"quality_level",
}

// WriteColumnsCSV writes the flattened column-table form of the
// profiles: one row per column, optional stat blocks omitted.
func WriteColumnsCSV(w io.Writer, columns []models.ColumnProfile) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columnsCSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, col := range columns {
		record := []string{
			col.SchemaName,
			col.TableName,
			col.ColumnName,
			strconv.Itoa(col.OrdinalPosition),
			string(col.InferredType),
			col.IsNullable,
			strconv.Itoa(col.TotalCount),
			strconv.Itoa(col.NullCount),
			strconv.FormatFloat(col.NullPercentage, 'f', 2, 64),
			strconv.Itoa(col.UniqueCount),
			strconv.FormatFloat(col.UniquePercentage, 'f', 2, 64),
			string(col.QualityLevel),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
