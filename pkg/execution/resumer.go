package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/events"
	"github.com/dukex/relay/pkg/persistence"
)

// Resumer is crash recovery: on startup it finds executions left RUNNING
// and re-enters each from its first unsettled action. Already-settled
// results are never re-run; only the action that was in flight when the
// process died may execute twice, which is why side effects carry
// idempotency keys.
type Resumer struct {
	logger      *slog.Logger
	executions  persistence.ExecutionRepository
	coordinator *Coordinator
	publisher   eventbus.EventPublisher
}

func NewResumer(
	logger *slog.Logger,
	executions persistence.ExecutionRepository,
	coordinator *Coordinator,
	publisher eventbus.EventPublisher,
) *Resumer {
	return &Resumer{
		logger:      logger.With("module", "resumer"),
		executions:  executions,
		coordinator: coordinator,
		publisher:   publisher,
	}
}

// Resume relaunches every interrupted execution. Each runs on its own
// goroutine through the coordinator's normal path.
func (r *Resumer) Resume(ctx context.Context) error {
	running, err := r.executions.ListRunning(ctx)
	if err != nil {
		return fmt.Errorf("failed to list running executions: %w", err)
	}

	if len(running) == 0 {
		return nil
	}

	r.logger.InfoContext(ctx, "Resuming interrupted executions", "count", len(running))

	for _, execution := range running {
		// executions parked on a delay or backoff wait out the remainder,
		// they do not run on just because the process restarted
		if at, ok := execution.ResumeAt(); ok && at.After(time.Now().UTC()) {
			r.logger.InfoContext(ctx, "Re-parking suspended execution",
				"execution_id", execution.ID,
				"workflow_id", execution.WorkflowID,
				"resume_at", at)
			r.coordinator.park(execution.ID, time.Until(at))

			continue
		}

		resumeIndex := execution.NextPendingIndex()

		r.logger.InfoContext(ctx, "Resuming execution",
			"execution_id", execution.ID,
			"workflow_id", execution.WorkflowID,
			"resume_index", resumeIndex)

		resumed := events.ExecutionResumed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent, execution.WorkflowID),
			ExecutionID: execution.ID,
			TenantID:    execution.TenantID,
			ResumeIndex: resumeIndex,
		}

		err := r.publisher.Publish(ctx, events.ExecutionTopic, execution.TenantID, resumed)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to publish resume event",
				"execution_id", execution.ID,
				"error", err)
		}

		go r.coordinator.Run(ctx, execution)
	}

	return nil
}
