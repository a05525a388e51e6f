package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/pipeline"
)

// RunRepository persists pipeline runs, their stages, and the final run
// context. The engine ships an in-memory implementation; a SQL-backed
// one satisfies the same interface.
type RunRepository interface {
	Create(ctx context.Context, run *models.PipelineRun) error
	CreateStages(ctx context.Context, runID uuid.UUID, stages []models.StageRun) error
	GetByID(ctx context.Context, runID uuid.UUID) (*models.PipelineRun, error)

	UpdateStatus(ctx context.Context, runID uuid.UUID, status models.RunStatus, errorMessage *string) error
	UpdateCurrentStage(ctx context.Context, runID uuid.UUID, stage *string) error
	UpdateStageStatus(ctx context.Context, runID uuid.UUID, name models.StageName, status models.StageStatus, errorMessage *string) error
	UpdateStageResult(ctx context.Context, runID uuid.UUID, name models.StageName, result models.StageResult, retries int) error
	UpdateHeartbeat(ctx context.Context, runID uuid.UUID, at time.Time) error

	SaveResult(ctx context.Context, runID uuid.UUID, rc *pipeline.RunContext) error
	GetResult(ctx context.Context, runID uuid.UUID) (*pipeline.RunContext, error)
}
