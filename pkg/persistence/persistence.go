// Package persistence provides the storage abstraction layer for workflows,
// executions and schedules.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/relay/pkg/models"
)

// Persistence bundles the repositories one backend serves.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ScheduleRepository() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	// ListRunnable returns every workflow that should be in the trigger
	// index, across tenants. Used to rebuild the index on startup.
	ListRunnable(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// WorkflowStats aggregates an execution history for the workflow list view.
type WorkflowStats struct {
	TotalRuns      int64      `json:"total_runs"`
	SucceededRuns  int64      `json:"succeeded_runs"`
	FailedRuns     int64      `json:"failed_runs"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// ExecutionRepository stores execution records and their append-only action
// results. Every state transition is persisted before the coordinator moves
// on, so a crashed run can be resumed from its last settled action.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	UpdateStatus(ctx context.Context, id string, status models.ExecutionStatus, errorMessage string, completedAt *time.Time) error
	AppendResult(ctx context.Context, executionID string, result *models.ActionResult) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)
	// ListRunning returns executions left in RUNNING state, the resume set
	// after a crash.
	ListRunning(ctx context.Context) ([]*models.Execution, error)
	CountByWorkflow(ctx context.Context, workflowID string) (int64, error)
	StatsByWorkflow(ctx context.Context, workflowID string) (*WorkflowStats, error)
}

// ScheduleRepository stores time-based firing entries.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *models.Schedule) error
	GetByWorkflowID(ctx context.Context, workflowID string) (*models.Schedule, error)
	Delete(ctx context.Context, workflowID string) error
	// Due returns active schedules whose next due time is at or before now.
	Due(ctx context.Context, now time.Time) ([]*models.Schedule, error)
}

// DedupStore claims (event, workflow) pairs so an event redelivered by the
// at-least-once bus starts at most one execution per workflow.
type DedupStore interface {
	// Claim returns true exactly once per key; later calls with the same
	// pair return false.
	Claim(ctx context.Context, eventID, workflowID string) (bool, error)
	Close(ctx context.Context) error
}
