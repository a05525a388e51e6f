package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/retry"
)

// Observer receives stage lifecycle notifications. Implementations must
// be fast; they run inline between stages.
type Observer interface {
	StageStarted(name models.StageName)
	StageCompleted(name models.StageName, result models.StageResult, retries int)
	StageFailed(name models.StageName, err error, retries int)
}

// NoopObserver satisfies Observer with no side effects.
type NoopObserver struct{}

func (NoopObserver) StageStarted(models.StageName)                            {}
func (NoopObserver) StageCompleted(models.StageName, models.StageResult, int) {}
func (NoopObserver) StageFailed(models.StageName, error, int)                 {}

// Runner executes the stages of one run strictly in order. It holds no
// business logic: it sequences, retries, checks cancellation, and
// reports transitions to the observer.
type Runner struct {
	stages   *Stages
	retryCfg *retry.Config
	observer Observer
	logger   *zap.Logger
}

func NewRunner(stages *Stages, retryCfg *retry.Config, observer Observer, logger *zap.Logger) *Runner {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Runner{
		stages:   stages,
		retryCfg: retryCfg,
		observer: observer,
		logger:   logger.Named("runner"),
	}
}

// Run executes all stages against the context. Stage results never gate
// the next stage; only Init argument validation and the preflight check
// abort the run. Cancellation is checked between stages.
func (r *Runner) Run(ctx context.Context, rc *RunContext) error {
	for _, name := range models.AllStages() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fn := r.stages.stageFunc(name)
		if fn == nil {
			return fmt.Errorf("no implementation for stage %s", name)
		}

		r.observer.StageStarted(name)
		r.logger.Info("stage started",
			zap.String("run_id", rc.RunID.String()),
			zap.String("stage", string(name)))

		result, retries, err := r.executeStage(ctx, name, fn, rc)
		if err != nil {
			r.observer.StageFailed(name, err, retries)
			r.logger.Error("stage failed",
				zap.String("run_id", rc.RunID.String()),
				zap.String("stage", string(name)),
				zap.Int("retries", retries),
				zap.Error(err))
			return fmt.Errorf("stage %s: %w", name, err)
		}

		rc.StageResults[name] = result
		r.observer.StageCompleted(name, result, retries)
		r.logger.Info("stage completed",
			zap.String("run_id", rc.RunID.String()),
			zap.String("stage", string(name)),
			zap.Int("processed", result.Processed),
			zap.Int("errors", result.Errors))
	}
	return nil
}

// executeStage runs one stage, wrapping every stage but Init in the
// retry policy. Only transient errors are retried; a permanent failure
// (missing file, unreadable format) fails on the first attempt.
func (r *Runner) executeStage(ctx context.Context, name models.StageName, fn func(context.Context, *RunContext) (models.StageResult, error), rc *RunContext) (models.StageResult, int, error) {
	if name == models.StageInit {
		result, err := fn(ctx, rc)
		return result, 0, err
	}

	attempts := 0
	result, err := retry.DoWithResultIfRetryable(ctx, r.retryCfg, func() (models.StageResult, error) {
		attempts++
		return fn(ctx, rc)
	})
	retries := attempts - 1
	if retries < 0 {
		retries = 0
	}
	return result, retries, err
}
