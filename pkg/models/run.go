package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Run Status
// ============================================================================

// RunStatus represents the execution status of a pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ValidRunStatuses contains all valid run status values.
var ValidRunStatuses = []RunStatus{
	RunStatusPending,
	RunStatusRunning,
	RunStatusCompleted,
	RunStatusFailed,
	RunStatusCancelled,
}

// IsValidRunStatus checks if the given status is valid.
func IsValidRunStatus(s RunStatus) bool {
	for _, v := range ValidRunStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the run status is terminal (completed, failed, or cancelled).
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// IsActive returns true if the run is currently active (pending or running).
func (s RunStatus) IsActive() bool {
	return s == RunStatusPending || s == RunStatusRunning
}

// ============================================================================
// Stage Status
// ============================================================================

// StageStatus represents the execution status of a pipeline stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// ValidStageStatuses contains all valid stage status values.
var ValidStageStatuses = []StageStatus{
	StageStatusPending,
	StageStatusRunning,
	StageStatusCompleted,
	StageStatusFailed,
	StageStatusSkipped,
}

// IsValidStageStatus checks if the given status is valid.
func IsValidStageStatus(s StageStatus) bool {
	for _, v := range ValidStageStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the stage status is terminal.
func (s StageStatus) IsTerminal() bool {
	return s == StageStatusCompleted || s == StageStatusFailed || s == StageStatusSkipped
}

// ============================================================================
// Stage Names
// ============================================================================

// StageName identifies a stage in the extraction pipeline.
type StageName string

const (
	StageInit                   StageName = "Init"
	StagePreflightCheck         StageName = "PreflightCheck"
	StageFetchDatabase          StageName = "FetchDatabase"
	StageFetchSchema            StageName = "FetchSchema"
	StageFetchTables            StageName = "FetchTables"
	StageFetchColumns           StageName = "FetchColumns"
	StageGenerateVisualizations StageName = "GenerateVisualizations"
	StageTransform              StageName = "Transform"
)

// StageOrder defines the execution order for each stage.
var StageOrder = map[StageName]int{
	StageInit:                   1,
	StagePreflightCheck:         2,
	StageFetchDatabase:          3,
	StageFetchSchema:            4,
	StageFetchTables:            5,
	StageFetchColumns:           6,
	StageGenerateVisualizations: 7,
	StageTransform:              8,
}

// AllStages returns all stage names in execution order.
func AllStages() []StageName {
	return []StageName{
		StageInit,
		StagePreflightCheck,
		StageFetchDatabase,
		StageFetchSchema,
		StageFetchTables,
		StageFetchColumns,
		StageGenerateVisualizations,
		StageTransform,
	}
}

// ============================================================================
// Stage Result
// ============================================================================

// StageResult is the per-stage outcome tally. Processed counts records the
// stage handled; Errors counts records it gave up on. A stage with errors
// still completes; only a preflight failure stops the run.
type StageResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Add merges another result into this one.
func (r *StageResult) Add(other StageResult) {
	r.Processed += other.Processed
	r.Errors += other.Errors
}

// ============================================================================
// Pipeline Run Model
// ============================================================================

// PipelineRun represents one extraction run over a single source file.
type PipelineRun struct {
	ID         uuid.UUID `json:"id"`
	SourcePath string    `json:"source_path"`
	TenantID   string    `json:"tenant_id"`

	// Execution state
	Status       RunStatus `json:"status"`
	CurrentStage *string   `json:"current_stage,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`

	// Liveness
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`

	// Timing
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Stages (populated when fetching with stages)
	Stages []StageRun `json:"stages,omitempty"`
}

// IsRunning returns true if the run is currently running.
func (r *PipelineRun) IsRunning() bool {
	return r.Status == RunStatusRunning
}

// IsComplete returns true if the run completed successfully.
func (r *PipelineRun) IsComplete() bool {
	return r.Status == RunStatusCompleted
}

// HasFailed returns true if the run failed.
func (r *PipelineRun) HasFailed() bool {
	return r.Status == RunStatusFailed
}

// IsCancelled returns true if the run was cancelled.
func (r *PipelineRun) IsCancelled() bool {
	return r.Status == RunStatusCancelled
}

// CompletedStageCount returns the number of completed stages.
func (r *PipelineRun) CompletedStageCount() int {
	count := 0
	for _, stage := range r.Stages {
		if stage.Status == StageStatusCompleted {
			count++
		}
	}
	return count
}

// TotalStageCount returns the total number of stages.
func (r *PipelineRun) TotalStageCount() int {
	return len(r.Stages)
}

// ============================================================================
// Stage Run Model
// ============================================================================

// StageRun represents one stage within a pipeline run.
type StageRun struct {
	ID    uuid.UUID `json:"id"`
	RunID uuid.UUID `json:"run_id"`

	// Stage identification
	StageName  StageName `json:"stage_name"`
	StageOrder int       `json:"stage_order"`

	// Execution state
	Status StageStatus  `json:"status"`
	Result *StageResult `json:"result,omitempty"`

	// Timing
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMs  *int       `json:"duration_ms,omitempty"`

	// Error handling
	ErrorMessage *string `json:"error_message,omitempty"`
	RetryCount   int     `json:"retry_count"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRunning returns true if the stage is currently running.
func (s *StageRun) IsRunning() bool {
	return s.Status == StageStatusRunning
}

// IsComplete returns true if the stage completed successfully.
func (s *StageRun) IsComplete() bool {
	return s.Status == StageStatusCompleted
}

// HasFailed returns true if the stage failed.
func (s *StageRun) HasFailed() bool {
	return s.Status == StageStatusFailed
}

// IsSkipped returns true if the stage was skipped.
func (s *StageRun) IsSkipped() bool {
	return s.Status == StageStatusSkipped
}
