package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/extract"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/profiler"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/transform"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/visualize"
)

// Stages holds the collaborators the pipeline stages run against.
// Extraction failures local to one table or column are tallied into the
// stage result and never abort the stage; only the preflight check
// returns a hard error.
type Stages struct {
	source      connector.Source
	aggregator  *visualize.Aggregator
	transformer *transform.Transformer
	logger      *zap.Logger
}

func NewStages(source connector.Source, aggregator *visualize.Aggregator, transformer *transform.Transformer, logger *zap.Logger) *Stages {
	return &Stages{
		source:      source,
		aggregator:  aggregator,
		transformer: transformer,
		logger:      logger.Named("stages"),
	}
}

// Init validates the run arguments. It is the only stage the runner
// never retries.
func (s *Stages) Init(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	if rc.SourcePath == "" {
		return models.StageResult{}, fmt.Errorf("run has no source path")
	}
	return models.StageResult{Processed: 1}, nil
}

// PreflightCheck connects to the source. Its failure aborts the run
// before any extraction stage executes.
func (s *Stages) PreflightCheck(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	if err := s.source.Connect(ctx); err != nil {
		return models.StageResult{Errors: 1}, fmt.Errorf("preflight failed: %w", err)
	}
	return models.StageResult{Processed: 1}, nil
}

// FetchDatabase derives the database-level record from the source
// metadata and table listing.
func (s *Stages) FetchDatabase(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	tables, err := s.source.ListTables(ctx)
	if err != nil {
		s.logger.Error("failed to list tables", zap.Error(err))
		return models.StageResult{Errors: 1}, nil
	}
	db := extract.BuildDatabaseInfo(s.source.SourceMetadata(), len(tables))
	rc.Database = &db
	return models.StageResult{Processed: 1}, nil
}

// FetchSchema derives the single implicit schema from the database record.
func (s *Stages) FetchSchema(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	if rc.Database == nil {
		s.logger.Error("no database record to derive schema from")
		return models.StageResult{Errors: 1}, nil
	}
	schema := extract.BuildSchemaInfo(*rc.Database)
	rc.Schema = &schema
	return models.StageResult{Processed: 1}, nil
}

// FetchTables loads every listed table and derives its record. A table
// that fails to load is skipped; the run continues with the rest. The
// output list is rebuilt from scratch so a retry never accumulates.
func (s *Stages) FetchTables(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	rc.Tables = nil

	names, err := s.source.ListTables(ctx)
	if err != nil {
		s.logger.Error("failed to list tables", zap.Error(err))
		return models.StageResult{Errors: 1}, nil
	}

	var result models.StageResult
	schemaName := rc.SchemaName()
	for _, name := range names {
		data, err := s.source.GetTable(ctx, name)
		if err != nil || data == nil {
			s.logger.Warn("skipping table that failed to load",
				zap.String("table", name),
				zap.Error(err))
			result.Errors++
			continue
		}
		rc.Tables = append(rc.Tables, extract.BuildTableInfo(name, data, schemaName))
		result.Processed++
	}

	// Loaded tables, not listed tables, define the reported count.
	if rc.Database != nil {
		rc.Database.TableCount = len(rc.Tables)
	}
	if rc.Schema != nil {
		rc.Schema.TableCount = len(rc.Tables)
	}
	return result, nil
}

// FetchColumns profiles every column of every loaded table. The output
// list is rebuilt from scratch on each execution.
func (s *Stages) FetchColumns(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	rc.Columns = nil

	var result models.StageResult
	for _, table := range rc.Tables {
		data, err := s.source.GetTable(ctx, table.Name)
		if err != nil || data == nil {
			s.logger.Warn("skipping columns of table that failed to load",
				zap.String("table", table.Name),
				zap.Error(err))
			result.Errors++
			continue
		}
		for i, col := range data.Columns {
			rc.Columns = append(rc.Columns, profiler.Profile(col, i+1, table.Name, table.SchemaName))
			result.Processed++
		}
	}
	return result, nil
}

// GenerateVisualizations derives chart aggregates per loaded table.
// A table whose aggregation fails contributes zero specs.
func (s *Stages) GenerateVisualizations(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	rc.Visualizations = nil

	var result models.StageResult
	for _, table := range rc.Tables {
		data, err := s.source.GetTable(ctx, table.Name)
		if err != nil || data == nil {
			s.logger.Warn("skipping visualizations of table that failed to load",
				zap.String("table", table.Name),
				zap.Error(err))
			result.Errors++
			continue
		}
		specs := s.aggregator.TableVisualizations(data, table.Name)
		rc.Visualizations = append(rc.Visualizations, specs...)
		result.Processed += len(specs)
	}
	return result, nil
}

// Transform maps every accumulated record into a catalog entity.
func (s *Stages) Transform(ctx context.Context, rc *RunContext) (models.StageResult, error) {
	entities, errorCount := s.transformer.Transform(transform.Input{
		Database:       rc.Database,
		Schema:         rc.Schema,
		Tables:         rc.Tables,
		Columns:        rc.Columns,
		Visualizations: rc.Visualizations,
	})
	rc.Entities = entities
	return models.StageResult{Processed: len(entities), Errors: errorCount}, nil
}

// stageFunc returns the method implementing the named stage.
func (s *Stages) stageFunc(name models.StageName) func(context.Context, *RunContext) (models.StageResult, error) {
	switch name {
	case models.StageInit:
		return s.Init
	case models.StagePreflightCheck:
		return s.PreflightCheck
	case models.StageFetchDatabase:
		return s.FetchDatabase
	case models.StageFetchSchema:
		return s.FetchSchema
	case models.StageFetchTables:
		return s.FetchTables
	case models.StageFetchColumns:
		return s.FetchColumns
	case models.StageGenerateVisualizations:
		return s.GenerateVisualizations
	case models.StageTransform:
		return s.Transform
	default:
		return nil
	}
}
