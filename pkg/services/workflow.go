package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/registry"
	"github.com/dukex/relay/pkg/scheduler"
)

// Workflow implements the workflow lifecycle: create, update, toggle and
// delete, plus the read surface the API serves. Every transition keeps the
// trigger index and the scheduler in sync, so dispatch always sees the
// current runnable set without a restart.
type Workflow struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	validator   *validator.Validate

	// index and scheduler are nil in processes that only read, such as
	// the API without an embedded engine.
	index     *registry.TriggerIndex
	scheduler *scheduler.Scheduler
}

// NewWorkflow creates a new workflow service. index and scheduler may be
// nil; transitions then only touch storage.
func NewWorkflow(
	logger *slog.Logger,
	persistence persistence.Persistence,
	reg *registry.Registry,
	index *registry.TriggerIndex,
	sched *scheduler.Scheduler,
) *Workflow {
	return &Workflow{
		logger:      logger.With("module", "workflow_service"),
		persistence: persistence,
		registry:    reg,
		validator:   validator.New(),
		index:       index,
		scheduler:   sched,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchByID retrieves a workflow by its ID.
func (s *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Overview pairs a workflow with its aggregated execution history.
type Overview struct {
	Workflow *models.Workflow           `json:"workflow"`
	Stats    *persistence.WorkflowStats `json:"stats"`
}

// ListByTenant returns the tenant's workflows with per-workflow run stats.
func (s *Workflow) ListByTenant(ctx context.Context, tenantID string) ([]*Overview, error) {
	workflows, err := s.persistence.WorkflowRepository().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	overviews := make([]*Overview, 0, len(workflows))

	for _, workflow := range workflows {
		stats, err := s.persistence.ExecutionRepository().StatsByWorkflow(ctx, workflow.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stats for workflow %s: %w", workflow.ID, err)
		}

		overviews = append(overviews, &Overview{Workflow: workflow, Stats: stats})
	}

	return overviews, nil
}

// Create validates and stores a new workflow. Configuration problems are
// surfaced here so a workflow that saves is a workflow that can run.
func (s *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	for _, action := range workflow.Actions {
		if action.ID == "" {
			action.ID = uuid.New().String()
		}

		action.WorkflowID = workflow.ID
	}

	if err := s.validate(workflow); err != nil {
		return nil, err
	}

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.sync(ctx, workflow)

	return workflow, nil
}

// Update modifies an existing workflow. Archived workflows are immutable.
func (s *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := s.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	if workflow.TenantID != existing.TenantID {
		return nil, ErrTenantMismatch
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	for _, action := range workflow.Actions {
		if action.ID == "" {
			action.ID = uuid.New().String()
		}

		action.WorkflowID = workflowID
	}

	if err := s.validate(workflow); err != nil {
		return nil, err
	}

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	s.sync(ctx, workflow)

	return workflow, nil
}

// Toggle activates or pauses a workflow. Activation re-validates the
// definition, so a workflow broken by a schema change cannot be switched
// back on. In-flight executions are unaffected either way; they run from
// their snapshot.
func (s *Workflow) Toggle(ctx context.Context, workflowID string, active bool) (*models.Workflow, error) {
	workflow, err := s.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	if active {
		if err := s.validate(workflow); err != nil {
			return nil, err
		}

		workflow.IsActive = true
		workflow.Status = models.WorkflowStatusActive
	} else {
		workflow.IsActive = false
		workflow.Status = models.WorkflowStatusPaused
	}

	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to toggle workflow: %w", err)
	}

	s.sync(ctx, workflow)

	s.logger.InfoContext(ctx, "Workflow toggled",
		"workflow_id", workflow.ID,
		"active", workflow.IsActive)

	return workflow, nil
}

// Delete removes a workflow and its routing state. Execution history stays.
func (s *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := s.FetchByID(ctx, workflowID); err != nil {
		return err
	}

	if s.index != nil {
		s.index.Unregister(workflowID)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Remove(ctx, workflowID); err != nil {
			return fmt.Errorf("failed to remove schedule: %w", err)
		}
	}

	if err := s.persistence.WorkflowRepository().Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// validate rejects definitions that could not run: model shape, condition
// tree, per-action config against the registered schemas, and the trigger
// spec for scheduled workflows.
func (s *Workflow) validate(workflow *models.Workflow) error {
	if err := s.validator.Struct(workflow); err != nil {
		return NewValidationError("validate", err.Error(), ErrWorkflowInvalid)
	}

	if len(workflow.Actions) == 0 {
		return ErrActionsRequired
	}

	if workflow.Conditions != nil {
		if err := workflow.Conditions.Check(); err != nil {
			return NewValidationError("validate", err.Error(), ErrConditionInvalid)
		}
	}

	if s.registry != nil {
		for _, action := range workflow.Actions {
			if err := s.registry.ValidateActionConfig(action.Type, action.Config); err != nil {
				detail := fmt.Sprintf("action %s (%s): %v", action.ID, action.Type, err)

				return NewValidationError("validate", detail, ErrActionInvalid)
			}
		}
	}

	if workflow.TriggerType.Scheduled() {
		if _, err := scheduler.ScheduleFor(workflow); err != nil {
			return NewValidationError("validate", err.Error(), ErrTriggerInvalid)
		}
	}

	return nil
}

// sync pushes the workflow's current runnable state into the trigger index
// and the scheduler. Failures are logged, not returned: storage is the
// source of truth and the engine reconciles from it on restart.
func (s *Workflow) sync(ctx context.Context, workflow *models.Workflow) {
	if s.index != nil {
		if workflow.Runnable() {
			s.index.Register(workflow)
		} else {
			s.index.Unregister(workflow.ID)
		}
	}

	if s.scheduler != nil && workflow.TriggerType.Scheduled() {
		if err := s.scheduler.Sync(ctx, workflow); err != nil {
			s.logger.ErrorContext(ctx, "Failed to sync schedule",
				"workflow_id", workflow.ID,
				"error", err)
		}
	}
}
