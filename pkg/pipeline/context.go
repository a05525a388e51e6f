package pipeline

import (
	"github.com/google/uuid"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// RunContext is the typed accumulation state for one pipeline run. The
// runner owns the instance; each stage reads the fields earlier stages
// wrote and overwrites its own outputs from scratch, so a retried stage
// never double-counts.
type RunContext struct {
	RunID      uuid.UUID
	SourcePath string
	TenantID   string

	Database       *models.DatabaseInfo
	Schema         *models.SchemaInfo
	Tables         []models.TableInfo
	Columns        []models.ColumnProfile
	Visualizations []models.VisualizationSpec
	Entities       []models.CatalogEntity

	// StageResults records each stage's outcome tally for observability.
	StageResults map[models.StageName]models.StageResult
}

// NewRunContext prepares an empty context for a run.
func NewRunContext(runID uuid.UUID, sourcePath, tenantID string) *RunContext {
	return &RunContext{
		RunID:        runID,
		SourcePath:   sourcePath,
		TenantID:     tenantID,
		StageResults: make(map[models.StageName]models.StageResult),
	}
}

// SchemaName returns the implicit schema's name, falling back to the
// database name before the schema stage has run.
func (rc *RunContext) SchemaName() string {
	if rc.Schema != nil {
		return rc.Schema.Name
	}
	if rc.Database != nil {
		return rc.Database.Name
	}
	return ""
}

// TotalProcessed sums processed counts across all recorded stages.
func (rc *RunContext) TotalProcessed() int {
	total := 0
	for _, r := range rc.StageResults {
		total += r.Processed
	}
	return total
}

// TotalErrors sums error counts across all recorded stages.
func (rc *RunContext) TotalErrors() int {
	total := 0
	for _, r := range rc.StageResults {
		total += r.Errors
	}
	return total
}
