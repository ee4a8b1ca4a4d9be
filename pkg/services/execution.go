package services

import (
	"context"
	"fmt"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

// Canceller stops a running execution. The coordinator implements it; the
// service depends on the interface so the API can run without an engine.
type Canceller interface {
	Cancel(ctx context.Context, executionID, reason, cancelledBy string) error
}

// Execution serves the execution read surface and cancellation.
type Execution struct {
	persistence persistence.Persistence
	canceller   Canceller
}

// NewExecution creates a new execution service. canceller may be nil; Cancel
// then reports the engine as unavailable.
func NewExecution(persistence persistence.Persistence, canceller Canceller) *Execution {
	return &Execution{
		persistence: persistence,
		canceller:   canceller,
	}
}

// FetchByID retrieves an execution with its full action result timeline.
func (s *Execution) FetchByID(ctx context.Context, id string) (*models.Execution, error) {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if execution == nil {
		return nil, ErrExecutionNotFound
	}

	return execution, nil
}

// ListByWorkflow returns the most recent executions of a workflow.
func (s *Execution) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	executions, err := s.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// Cancel requests cancellation of a running execution.
func (s *Execution) Cancel(ctx context.Context, executionID, reason, cancelledBy string) error {
	if s.canceller == nil {
		return fmt.Errorf("cancellation unavailable: no engine attached")
	}

	if _, err := s.FetchByID(ctx, executionID); err != nil {
		return err
	}

	return s.canceller.Cancel(ctx, executionID, reason, cancelledBy)
}
