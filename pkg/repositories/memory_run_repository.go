package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/apperrors"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/pipeline"
)

// MemoryRunRepository is the in-process RunRepository. Runs live for the
// lifetime of the server.
type MemoryRunRepository struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]*models.PipelineRun
	stages  map[uuid.UUID][]models.StageRun
	results map[uuid.UUID]*pipeline.RunContext
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{
		runs:    make(map[uuid.UUID]*models.PipelineRun),
		stages:  make(map[uuid.UUID][]models.StageRun),
		results: make(map[uuid.UUID]*pipeline.RunContext),
	}
}

func (r *MemoryRunRepository) Create(ctx context.Context, run *models.PipelineRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *MemoryRunRepository) CreateStages(ctx context.Context, runID uuid.UUID, stages []models.StageRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[runID]; !ok {
		return apperrors.ErrRunNotFound
	}
	now := time.Now()
	stored := make([]models.StageRun, len(stages))
	for i, s := range stages {
		s.CreatedAt = now
		s.UpdatedAt = now
		stored[i] = s
	}
	r.stages[runID] = stored
	return nil
}

// GetByID returns a copy of the run with its stages attached.
func (r *MemoryRunRepository) GetByID(ctx context.Context, runID uuid.UUID) (*models.PipelineRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[runID]
	if !ok {
		return nil, apperrors.ErrRunNotFound
	}
	out := *run
	out.Stages = append([]models.StageRun(nil), r.stages[runID]...)
	return &out, nil
}

func (r *MemoryRunRepository) UpdateStatus(ctx context.Context, runID uuid.UUID, status models.RunStatus, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return apperrors.ErrRunNotFound
	}
	now := time.Now()
	run.Status = status
	run.ErrorMessage = errorMessage
	run.UpdatedAt = now
	if status == models.RunStatusRunning && run.StartedAt == nil {
		run.StartedAt = &now
	}
	if status.IsTerminal() {
		run.CompletedAt = &now
		run.CurrentStage = nil
	}
	return nil
}

func (r *MemoryRunRepository) UpdateCurrentStage(ctx context.Context, runID uuid.UUID, stage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return apperrors.ErrRunNotFound
	}
	run.CurrentStage = stage
	run.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRunRepository) UpdateStageStatus(ctx context.Context, runID uuid.UUID, name models.StageName, status models.StageStatus, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stages, ok := r.stages[runID]
	if !ok {
		return apperrors.ErrRunNotFound
	}
	for i := range stages {
		if stages[i].StageName != name {
			continue
		}
		now := time.Now()
		stages[i].Status = status
		stages[i].ErrorMessage = errorMessage
		stages[i].UpdatedAt = now
		if status == models.StageStatusRunning && stages[i].StartedAt == nil {
			stages[i].StartedAt = &now
		}
		if status.IsTerminal() {
			stages[i].CompletedAt = &now
			if stages[i].StartedAt != nil {
				duration := int(now.Sub(*stages[i].StartedAt).Milliseconds())
				stages[i].DurationMs = &duration
			}
		}
		return nil
	}
	return apperrors.ErrStageNotFound
}

func (r *MemoryRunRepository) UpdateStageResult(ctx context.Context, runID uuid.UUID, name models.StageName, result models.StageResult, retries int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stages, ok := r.stages[runID]
	if !ok {
		return apperrors.ErrRunNotFound
	}
	for i := range stages {
		if stages[i].StageName != name {
			continue
		}
		stored := result
		stages[i].Result = &stored
		stages[i].RetryCount = retries
		stages[i].UpdatedAt = time.Now()
		return nil
	}
	return apperrors.ErrStageNotFound
}

func (r *MemoryRunRepository) UpdateHeartbeat(ctx context.Context, runID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return apperrors.ErrRunNotFound
	}
	run.LastHeartbeat = &at
	run.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRunRepository) SaveResult(ctx context.Context, runID uuid.UUID, rc *pipeline.RunContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[runID]; !ok {
		return apperrors.ErrRunNotFound
	}
	r.results[runID] = rc
	return nil
}

func (r *MemoryRunRepository) GetResult(ctx context.Context, runID uuid.UUID) (*pipeline.RunContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.runs[runID]; !ok {
		return nil, apperrors.ErrRunNotFound
	}
	rc, ok := r.results[runID]
	if !ok {
		return nil, apperrors.ErrRunNotFinished
	}
	return rc, nil
}
