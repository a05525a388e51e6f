package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/config"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/pipeline"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/repositories"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/transform"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/visualize"
)

// PipelineService owns the lifecycle of extraction runs. It launches
// runs in the background, tracks their liveness, and exposes status,
// results, cancellation and graceful shutdown.
type PipelineService interface {
	// Start launches a new run over the source file and returns the run
	// record immediately; execution continues in the background.
	Start(ctx context.Context, sourcePath string) (*models.PipelineRun, error)

	// GetStatus returns the run with all stage states.
	GetStatus(ctx context.Context, runID uuid.UUID) (*models.PipelineRun, error)

	// GetResult returns the accumulated run context of a finished run.
	GetResult(ctx context.Context, runID uuid.UUID) (*pipeline.RunContext, error)

	// Cancel stops a running pipeline.
	Cancel(ctx context.Context, runID uuid.UUID) error

	// Shutdown cancels every run this server is executing.
	Shutdown(ctx context.Context) error
}

type pipelineService struct {
	runRepo repositories.RunRepository
	cfg     *config.Config
	logger  *zap.Logger

	activeRuns      sync.Map // runID -> cancelFunc
	heartbeatCancel sync.Map // runID -> cancelFunc
}

func NewPipelineService(runRepo repositories.RunRepository, cfg *config.Config, logger *zap.Logger) PipelineService {
	return &pipelineService{
		runRepo: runRepo,
		cfg:     cfg,
		logger:  logger.Named("pipeline-service"),
	}
}

var _ PipelineService = (*pipelineService)(nil)

// Start creates the run and stage records and launches execution.
func (s *pipelineService) Start(ctx context.Context, sourcePath string) (*models.PipelineRun, error) {
	s.logger.Info("Starting pipeline run", zap.String("source_path", sourcePath))

	run := &models.PipelineRun{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		TenantID:   s.cfg.Connector.TenantID,
		Status:     models.RunStatusPending,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	stages := s.createStages(run.ID)
	if err := s.runRepo.CreateStages(ctx, run.ID, stages); err != nil {
		return nil, fmt.Errorf("create stages: %w", err)
	}

	if err := s.runRepo.UpdateStatus(ctx, run.ID, models.RunStatusRunning, nil); err != nil {
		return nil, fmt.Errorf("update run status: %w", err)
	}
	run.Status = models.RunStatusRunning

	// Heartbeat is started inside executeRun after its defer is established.
	go s.executeRun(run.ID, sourcePath)

	run.Stages = stages
	return run, nil
}

// GetStatus returns the run with its stages.
func (s *pipelineService) GetStatus(ctx context.Context, runID uuid.UUID) (*models.PipelineRun, error) {
	return s.runRepo.GetByID(ctx, runID)
}

// GetResult returns the run context a completed run accumulated.
func (s *pipelineService) GetResult(ctx context.Context, runID uuid.UUID) (*pipeline.RunContext, error) {
	return s.runRepo.GetResult(ctx, runID)
}

// Cancel stops a running pipeline and marks its unfinished stages
// skipped.
func (s *pipelineService) Cancel(ctx context.Context, runID uuid.UUID) error {
	s.logger.Info("Cancelling run", zap.String("run_id", runID.String()))

	if cancel, ok := s.activeRuns.Load(runID); ok {
		cancel.(context.CancelFunc)()
	}

	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	for _, stage := range run.Stages {
		if stage.Status != models.StageStatusCompleted && stage.Status != models.StageStatusFailed {
			if err := s.runRepo.UpdateStageStatus(ctx, runID, stage.StageName, models.StageStatusSkipped, nil); err != nil {
				s.logger.Error("Failed to mark stage as skipped",
					zap.String("run_id", runID.String()),
					zap.String("stage", string(stage.StageName)),
					zap.Error(err))
			}
		}
	}

	return s.runRepo.UpdateStatus(ctx, runID, models.RunStatusCancelled, nil)
}

// Shutdown cancels all runs this server is executing.
func (s *pipelineService) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down pipeline service")

	s.activeRuns.Range(func(key, value any) bool {
		runID := key.(uuid.UUID)
		cancel := value.(context.CancelFunc)

		s.logger.Info("Cancelling run for shutdown", zap.String("run_id", runID.String()))
		cancel()

		if hbCancel, ok := s.heartbeatCancel.Load(runID); ok {
			hbCancel.(context.CancelFunc)()
		}

		return true
	})

	return nil
}

// createStages builds all stage records in pending state.
func (s *pipelineService) createStages(runID uuid.UUID) []models.StageRun {
	allStages := models.AllStages()
	stages := make([]models.StageRun, len(allStages))

	for i, name := range allStages {
		stages[i] = models.StageRun{
			ID:         uuid.New(),
			RunID:      runID,
			StageName:  name,
			StageOrder: models.StageOrder[name],
			Status:     models.StageStatusPending,
		}
	}

	return stages
}

// executeRun drives one run in a background goroutine.
func (s *pipelineService) executeRun(runID uuid.UUID, sourcePath string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.activeRuns.Store(runID, cancel)

	// Defer is set up first so cleanup runs even on panic.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Run execution panicked",
				zap.String("run_id", runID.String()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			s.markRunFailed(runID, fmt.Sprintf("panic during execution: %v", r))
		}

		s.activeRuns.Delete(runID)
		s.stopHeartbeat(runID)
	}()

	s.startHeartbeat(runID)

	s.logger.Info("Starting run execution",
		zap.String("run_id", runID.String()),
		zap.String("source_path", sourcePath))

	source, err := connector.Open(sourcePath, s.logger)
	if err != nil {
		s.logger.Error("Failed to open source", zap.Error(err))
		s.markRunFailed(runID, err.Error())
		return
	}
	defer source.Disconnect() //nolint:errcheck // close on defer is best-effort

	rc := pipeline.NewRunContext(runID, sourcePath, s.cfg.Connector.TenantID)
	stages := pipeline.NewStages(
		source,
		visualize.NewAggregator(s.logger),
		transform.NewTransformer(s.cfg.Connector.Name, s.cfg.Connector.TenantID, s.logger),
		s.logger,
	)
	runner := pipeline.NewRunner(stages, s.cfg.Pipeline.RetryConfig(), s.newObserver(runID), s.logger)

	if err := runner.Run(ctx, rc); err != nil {
		if ctx.Err() != nil {
			s.logger.Info("Run execution cancelled", zap.String("run_id", runID.String()))
			return
		}
		s.markRunFailed(runID, err.Error())
		return
	}

	if err := s.runRepo.SaveResult(context.Background(), runID, rc); err != nil {
		s.logger.Error("Failed to save run result", zap.Error(err))
		s.markRunFailed(runID, "failed to save run result")
		return
	}

	s.markRunCompleted(runID)
}

// startHeartbeat stamps the run's liveness at the configured interval.
func (s *pipelineService) startHeartbeat(runID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	s.heartbeatCancel.Store(runID, cancel)

	go func() {
		ticker := time.NewTicker(s.cfg.Pipeline.HeartbeatInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.runRepo.UpdateHeartbeat(context.Background(), runID, time.Now()); err != nil {
					s.logger.Warn("Failed to update heartbeat", zap.Error(err))
				}
			}
		}
	}()
}

// stopHeartbeat stops the heartbeat goroutine for a run.
func (s *pipelineService) stopHeartbeat(runID uuid.UUID) {
	if cancel, ok := s.heartbeatCancel.Load(runID); ok {
		cancel.(context.CancelFunc)()
		s.heartbeatCancel.Delete(runID)
	}
}

// markRunFailed records the failure on the current (or first unfinished)
// stage and marks the run failed.
func (s *pipelineService) markRunFailed(runID uuid.UUID, errMsg string) {
	ctx := context.Background()

	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		s.logger.Error("Failed to get run for error marking", zap.Error(err))
		if updateErr := s.runRepo.UpdateStatus(ctx, runID, models.RunStatusFailed, &errMsg); updateErr != nil {
			s.logger.Error("Failed to mark run as failed", zap.Error(updateErr))
		}
		return
	}

	var target *models.StageRun
	if run.CurrentStage != nil {
		for i := range run.Stages {
			if string(run.Stages[i].StageName) == *run.CurrentStage {
				target = &run.Stages[i]
				break
			}
		}
	}
	if target == nil {
		for i := range run.Stages {
			if run.Stages[i].Status == models.StageStatusPending || run.Stages[i].Status == models.StageStatusRunning {
				target = &run.Stages[i]
				break
			}
		}
	}
	if target != nil {
		if err := s.runRepo.UpdateStageStatus(ctx, runID, target.StageName, models.StageStatusFailed, &errMsg); err != nil {
			s.logger.Error("Failed to update stage status with error",
				zap.String("stage", string(target.StageName)),
				zap.Error(err))
		}
	}

	if err := s.runRepo.UpdateStatus(ctx, runID, models.RunStatusFailed, &errMsg); err != nil {
		s.logger.Error("Failed to mark run as failed", zap.Error(err))
	}

	s.logger.Error("Run failed",
		zap.String("run_id", runID.String()),
		zap.String("error", errMsg))
}

// markRunCompleted marks the run completed.
func (s *pipelineService) markRunCompleted(runID uuid.UUID) {
	if err := s.runRepo.UpdateStatus(context.Background(), runID, models.RunStatusCompleted, nil); err != nil {
		s.logger.Error("Failed to mark run as completed", zap.Error(err))
	}
	s.logger.Info("Run completed successfully", zap.String("run_id", runID.String()))
}

// newObserver bridges stage transitions into repository updates.
func (s *pipelineService) newObserver(runID uuid.UUID) pipeline.Observer {
	return &runObserver{runRepo: s.runRepo, runID: runID, logger: s.logger}
}

type runObserver struct {
	runRepo repositories.RunRepository
	runID   uuid.UUID
	logger  *zap.Logger
}

func (o *runObserver) StageStarted(name models.StageName) {
	ctx := context.Background()
	stage := string(name)
	if err := o.runRepo.UpdateCurrentStage(ctx, o.runID, &stage); err != nil {
		o.logger.Warn("Failed to update current stage", zap.Error(err))
	}
	if err := o.runRepo.UpdateStageStatus(ctx, o.runID, name, models.StageStatusRunning, nil); err != nil {
		o.logger.Warn("Failed to mark stage running", zap.Error(err))
	}
}

func (o *runObserver) StageCompleted(name models.StageName, result models.StageResult, retries int) {
	ctx := context.Background()
	if err := o.runRepo.UpdateStageResult(ctx, o.runID, name, result, retries); err != nil {
		o.logger.Warn("Failed to record stage result", zap.Error(err))
	}
	if err := o.runRepo.UpdateStageStatus(ctx, o.runID, name, models.StageStatusCompleted, nil); err != nil {
		o.logger.Warn("Failed to mark stage completed", zap.Error(err))
	}
}

func (o *runObserver) StageFailed(name models.StageName, err error, retries int) {
	ctx := context.Background()
	msg := err.Error()
	if updateErr := o.runRepo.UpdateStageResult(ctx, o.runID, name, models.StageResult{Errors: 1}, retries); updateErr != nil {
		o.logger.Warn("Failed to record stage result", zap.Error(updateErr))
	}
	if updateErr := o.runRepo.UpdateStageStatus(ctx, o.runID, name, models.StageStatusFailed, &msg); updateErr != nil {
		o.logger.Warn("Failed to mark stage failed", zap.Error(updateErr))
	}
}
