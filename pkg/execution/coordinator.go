// Package execution runs workflow action chains: ordered traversal, failure
// policies with bounded retries, non-blocking delays, conditional branches
// and crash recovery from the persisted audit trail.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/events"
	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/otelhelper"
	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/protocol"
	"github.com/dukex/relay/pkg/registry"
)

const (
	// DefaultExecutionTimeout bounds the wall-clock life of one execution,
	// delays and retry backoffs included.
	DefaultExecutionTimeout = time.Hour

	retryBackoffBase = time.Second
)

// ErrExecutionFinished is returned when an operation targets an execution
// that already reached a terminal state.
var ErrExecutionFinished = errors.New("execution already finished")

// Coordinator owns the lifecycle of executions. Every state transition is
// persisted before the next action runs, so a crash loses at most the
// in-flight action.
type Coordinator struct {
	logger     *slog.Logger
	registry   *registry.Registry
	executions persistence.ExecutionRepository
	publisher  eventbus.EventPublisher
	timers     *Timers
	timeout    time.Duration
	tracer     trace.Tracer

	// backoffBase is the first retry delay; each further attempt doubles it.
	backoffBase time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewCoordinator(
	logger *slog.Logger,
	reg *registry.Registry,
	executions persistence.ExecutionRepository,
	publisher eventbus.EventPublisher,
	timers *Timers,
	timeout time.Duration,
	tracer trace.Tracer,
) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("relay")
	}

	return &Coordinator{
		logger:      logger.With("module", "coordinator"),
		registry:    reg,
		executions:  executions,
		publisher:   publisher,
		timers:      timers,
		timeout:     timeout,
		tracer:      tracer,
		backoffBase: retryBackoffBase,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// StartExecution creates and persists the execution record for a matched
// workflow against a definition snapshot, then announces it on the bus. The
// caller decides when and where Run happens.
func (c *Coordinator) StartExecution(ctx context.Context, workflow *models.Workflow, event *models.Event) (*models.Execution, error) {
	execution := &models.Execution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		TenantID:   workflow.TenantID,
		EventID:    event.ID,
		Snapshot:   workflow.Snapshot(),
		Event:      event,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
		Results:    make([]*models.ActionResult, 0),
	}

	err := c.executions.Create(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	c.publish(ctx, execution.TenantID, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID:  execution.ID,
		TenantID:     workflow.TenantID,
		WorkflowName: workflow.Name,
		TriggerType:  workflow.TriggerType,
		EventID:      event.ID,
	})

	return execution, nil
}

// Run walks the action chain from the first unsettled action. It returns
// when the execution reaches a terminal state or parks on a timer (delay or
// retry backoff); parked executions re-enter Run when the timer fires.
func (c *Coordinator) Run(ctx context.Context, execution *models.Execution) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.registerCancel(execution.ID, cancel)
	defer c.unregisterCancel(execution.ID)

	logger := c.logger.With(
		"execution_id", execution.ID,
		"workflow_id", execution.WorkflowID,
		"tenant_id", execution.TenantID,
	)

	runCtx, span := otelhelper.StartSpan(runCtx, c.tracer, "execution.run",
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.TenantIDKey, execution.TenantID),
	)
	defer span.End()

	skip := skippedActions(execution)
	actions := execution.Snapshot.Actions
	executionCtx := c.executionContext(execution)
	deadline := execution.StartedAt.Add(c.timeout)

	for i := execution.NextPendingIndex(); i < len(actions); i++ {
		if runCtx.Err() != nil {
			// cancelled; Cancel settled the record already
			return
		}

		action := actions[i]

		if time.Now().After(deadline) {
			logger.WarnContext(runCtx, "Execution exceeded wall-clock timeout",
				"timeout", c.timeout.String())
			c.fail(ctx, execution, "execution timeout")

			return
		}

		if skip[action.ID] {
			err := c.appendResult(ctx, execution, skippedResult(action))
			if err != nil {
				logger.ErrorContext(runCtx, "Failed to persist skipped result", "error", err)

				return
			}

			continue
		}

		outcome := c.runAction(runCtx, execution, executionCtx, action, deadline, skip, logger)

		switch outcome {
		case outcomeSucceeded, outcomeFailedContinue:
			continue
		case outcomeParked, outcomeCancelled, outcomeStorageError:
			return
		case outcomeFailedHalt:
			c.fail(ctx, execution, fmt.Sprintf("action %s failed", action.ID))

			return
		}
	}

	c.complete(ctx, execution, logger)
}

// Cancel stops a running or parked execution. The record settles as
// CANCELLED; in-flight action attempts see their context cancelled.
func (c *Coordinator) Cancel(ctx context.Context, executionID, reason, cancelledBy string) error {
	execution, err := c.executions.GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return ErrExecutionFinished
	}

	c.timers.Cancel(executionID)

	completedAt := time.Now().UTC()

	err = c.executions.UpdateStatus(ctx, executionID, models.ExecutionStatusCancelled, reason, &completedAt)
	if err != nil {
		return fmt.Errorf("failed to cancel execution %s: %w", executionID, err)
	}

	c.mu.Lock()
	if cancel, ok := c.cancels[executionID]; ok {
		cancel()
	}
	c.mu.Unlock()

	// the rest of the chain settles as SKIPPED so the audit trail shows
	// every action's fate
	for _, action := range execution.Snapshot.Actions[execution.NextPendingIndex():] {
		err := c.executions.AppendResult(ctx, executionID, skippedResult(action))
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to persist skipped result",
				"execution_id", executionID,
				"action_id", action.ID,
				"error", err)

			break
		}
	}

	c.publish(ctx, execution.TenantID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
		ExecutionID: executionID,
		TenantID:    execution.TenantID,
		Reason:      reason,
		CancelledBy: cancelledBy,
	})

	c.logger.InfoContext(ctx, "Execution cancelled",
		"execution_id", executionID,
		"reason", reason)

	return nil
}

// Shutdown drops pending timer continuations. Parked executions stay
// RUNNING in the store and are picked up by the resumer on next start.
func (c *Coordinator) Shutdown() {
	c.timers.CancelAll()
}

type actionOutcome int

const (
	outcomeSucceeded actionOutcome = iota
	outcomeParked
	outcomeFailedContinue
	outcomeFailedHalt
	outcomeCancelled
	outcomeStorageError
)

func (c *Coordinator) runAction(
	runCtx context.Context,
	execution *models.Execution,
	executionCtx *models.ExecutionContext,
	action *models.ActionDefinition,
	deadline time.Time,
	skip map[string]bool,
	logger *slog.Logger,
) actionOutcome {
	attempt := execution.AttemptsFor(action.ID) + 1
	logger = logger.With("action_id", action.ID, "action_type", action.Type, "attempt", attempt)

	actionCtx, span := otelhelper.StartSpan(runCtx, c.tracer, "execution.action",
		attribute.String(otelhelper.ActionIDKey, action.ID),
		attribute.String(otelhelper.ActionTypeKey, action.Type),
		attribute.Int(otelhelper.AttemptKey, attempt),
	)
	defer span.End()

	actionCtx, cancelAction := context.WithDeadline(actionCtx, deadline)
	defer cancelAction()

	executionCtx.CurrentActionID = action.ID

	startedAt := time.Now().UTC()

	handler, err := c.registry.CreateAction(action.Type, action.Config)
	if err != nil {
		// unusable config is terminal, never retried
		otelhelper.SetError(span, err)

		return c.settleFailure(runCtx, execution, action, attempt, startedAt, err, logger)
	}

	output, err := handler.Execute(actionCtx, *executionCtx, logger)
	finishedAt := time.Now().UTC()

	if err == nil {
		if branchResult, ok := output.(protocol.BranchResult); ok {
			markBranchSkips(action, branchResult.Next, skip)
		}

		result := &models.ActionResult{
			ActionID:   action.ID,
			ActionName: action.Name,
			ActionType: action.Type,
			Order:      action.Order,
			Attempt:    attempt,
			Status:     models.ActionResultSucceeded,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Output:     output,
		}

		appendErr := c.appendResult(runCtx, execution, result)
		if appendErr != nil {
			logger.ErrorContext(runCtx, "Failed to persist action result", "error", appendErr)

			return outcomeStorageError
		}

		executionCtx.StepResults[stepKey(action)] = output
		logger.InfoContext(runCtx, "Action succeeded")

		return outcomeSucceeded
	}

	if suspend, ok := protocol.AsSuspend(err); ok {
		resumeAt := finishedAt.Add(suspend.Duration)
		result := &models.ActionResult{
			ActionID:   action.ID,
			ActionName: action.Name,
			ActionType: action.Type,
			Order:      action.Order,
			Attempt:    attempt,
			Status:     models.ActionResultSucceeded,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Output: map[string]any{
				"suspended_for": suspend.Duration.String(),
				"resume_at":     resumeAt.Format(time.RFC3339Nano),
			},
		}

		appendErr := c.appendResult(runCtx, execution, result)
		if appendErr != nil {
			logger.ErrorContext(runCtx, "Failed to persist suspension", "error", appendErr)

			return outcomeStorageError
		}

		c.park(execution.ID, suspend.Duration)
		logger.InfoContext(runCtx, "Execution parked", "resume_in", suspend.Duration.String())

		return outcomeParked
	}

	if runCtx.Err() != nil {
		return outcomeCancelled
	}

	otelhelper.SetError(span, err)

	if action.OnFailure == models.OnFailureRetry && protocol.IsRetryable(err) && attempt < action.AttemptLimit() {
		backoff := retryBackoff(c.backoffBase, attempt)
		result := &models.ActionResult{
			ActionID:   action.ID,
			ActionName: action.Name,
			ActionType: action.Type,
			Order:      action.Order,
			Attempt:    attempt,
			Status:     models.ActionResultRetrying,
			StartedAt:  startedAt,
			FinishedAt: finishedAt,
			Output: map[string]any{
				"resume_at": finishedAt.Add(backoff).Format(time.RFC3339Nano),
			},
			Error: err.Error(),
		}

		appendErr := c.appendResult(runCtx, execution, result)
		if appendErr != nil {
			logger.ErrorContext(runCtx, "Failed to persist retry", "error", appendErr)

			return outcomeStorageError
		}

		c.park(execution.ID, backoff)
		logger.WarnContext(runCtx, "Action failed, retry scheduled",
			"error", err,
			"backoff", backoff.String())

		return outcomeParked
	}

	return c.settleFailure(runCtx, execution, action, attempt, startedAt, err, logger)
}

func (c *Coordinator) settleFailure(
	ctx context.Context,
	execution *models.Execution,
	action *models.ActionDefinition,
	attempt int,
	startedAt time.Time,
	actionErr error,
	logger *slog.Logger,
) actionOutcome {
	result := &models.ActionResult{
		ActionID:   action.ID,
		ActionName: action.Name,
		ActionType: action.Type,
		Order:      action.Order,
		Attempt:    attempt,
		Status:     models.ActionResultFailed,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Error:      actionErr.Error(),
	}

	err := c.appendResult(ctx, execution, result)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist action failure", "error", err)

		return outcomeStorageError
	}

	if action.OnFailure == models.OnFailureContinue {
		logger.WarnContext(ctx, "Action failed, chain continues", "error", actionErr)

		return outcomeFailedContinue
	}

	logger.ErrorContext(ctx, "Action failed, halting execution", "error", actionErr)

	return outcomeFailedHalt
}

// park arms the timer continuation: when it fires, the execution is
// re-fetched and re-entered from its next pending action. No goroutine or
// worker is held in between.
func (c *Coordinator) park(executionID string, d time.Duration) {
	c.timers.Schedule(executionID, d, func() {
		ctx := context.Background()

		execution, err := c.executions.GetByID(ctx, executionID)
		if err != nil {
			c.logger.Error("Failed to load parked execution", "execution_id", executionID, "error", err)

			return
		}

		if execution.Status.Terminal() {
			return
		}

		c.Run(ctx, execution)
	})
}

func (c *Coordinator) complete(ctx context.Context, execution *models.Execution, logger *slog.Logger) {
	completedAt := time.Now().UTC()

	err := c.settle(ctx, execution.ID, models.ExecutionStatusSucceeded, "", completedAt)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to settle execution", "error", err)

		return
	}

	c.publish(ctx, execution.TenantID, events.ExecutionCompleted{
		BaseEvent:       events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
		ExecutionID:     execution.ID,
		TenantID:        execution.TenantID,
		DurationMs:      completedAt.Sub(execution.StartedAt).Milliseconds(),
		ActionsExecuted: len(execution.Results),
	})

	logger.InfoContext(ctx, "Execution completed",
		"duration", completedAt.Sub(execution.StartedAt).String(),
		"actions_executed", len(execution.Results))
}

func (c *Coordinator) fail(ctx context.Context, execution *models.Execution, message string) {
	completedAt := time.Now().UTC()

	err := c.settle(ctx, execution.ID, models.ExecutionStatusFailed, message, completedAt)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to settle execution",
			"execution_id", execution.ID,
			"error", err)

		return
	}

	c.publish(ctx, execution.TenantID, events.ExecutionFailed{
		BaseEvent:       events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID:     execution.ID,
		TenantID:        execution.TenantID,
		Error:           message,
		DurationMs:      completedAt.Sub(execution.StartedAt).Milliseconds(),
		ActionsExecuted: len(execution.Results),
	})
}

// settle writes a terminal status unless another writer got there first.
func (c *Coordinator) settle(ctx context.Context, executionID string, status models.ExecutionStatus, message string, completedAt time.Time) error {
	current, err := c.executions.GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	if current.Status.Terminal() {
		return nil
	}

	return c.executions.UpdateStatus(ctx, executionID, status, message, &completedAt)
}

func (c *Coordinator) appendResult(ctx context.Context, execution *models.Execution, result *models.ActionResult) error {
	err := c.executions.AppendResult(ctx, execution.ID, result)
	if err != nil {
		return err
	}

	execution.Results = append(execution.Results, result)

	return nil
}

func (c *Coordinator) publish(ctx context.Context, key string, event eventbus.Event) {
	err := c.publisher.Publish(ctx, events.ExecutionTopic, key, event)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"error", err)
	}
}

// executionContext rebuilds the handler-visible context from the persisted
// record, so resumed executions see the same step results fresh ones did.
func (c *Coordinator) executionContext(execution *models.Execution) *models.ExecutionContext {
	stepResults := make(map[string]any)

	byID := make(map[string]*models.ActionDefinition, len(execution.Snapshot.Actions))
	for _, action := range execution.Snapshot.Actions {
		byID[action.ID] = action
	}

	for _, result := range execution.Results {
		if result.Status != models.ActionResultSucceeded || result.Output == nil {
			continue
		}

		if action, ok := byID[result.ActionID]; ok {
			stepResults[stepKey(action)] = result.Output
		}
	}

	var triggerData map[string]any
	if execution.Event != nil {
		triggerData = execution.Event.Payload
	}

	if triggerData == nil {
		triggerData = make(map[string]any)
	}

	return &models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		TenantID:    execution.TenantID,
		TriggerData: triggerData,
		StepResults: stepResults,
		Metadata:    make(map[string]any),
	}
}

func (c *Coordinator) registerCancel(executionID string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancels[executionID] = cancel
}

func (c *Coordinator) unregisterCancel(executionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cancels, executionID)
}

func retryBackoff(base time.Duration, attempt int) time.Duration {
	backoff := base

	for range attempt - 1 {
		backoff *= 2
	}

	return backoff
}

func stepKey(action *models.ActionDefinition) string {
	if action.Name != "" {
		return action.Name
	}

	return action.ID
}

func skippedResult(action *models.ActionDefinition) *models.ActionResult {
	now := time.Now().UTC()

	return &models.ActionResult{
		ActionID:   action.ID,
		ActionName: action.Name,
		ActionType: action.Type,
		Order:      action.Order,
		Attempt:    0,
		Status:     models.ActionResultSkipped,
		StartedAt:  now,
		FinishedAt: now,
	}
}

// skippedActions replays persisted branch outcomes so a resumed execution
// skips the same untaken side the original run decided on.
func skippedActions(execution *models.Execution) map[string]bool {
	skip := make(map[string]bool)

	byID := make(map[string]*models.ActionDefinition, len(execution.Snapshot.Actions))
	for _, action := range execution.Snapshot.Actions {
		byID[action.ID] = action
	}

	for _, result := range execution.Results {
		if result.Status != models.ActionResultSucceeded {
			continue
		}

		action, ok := byID[result.ActionID]
		if !ok || action.Type != "conditional_branch" {
			continue
		}

		next, ok := branchNext(result.Output)
		if !ok {
			continue
		}

		markBranchSkips(action, next, skip)
	}

	return skip
}

// markBranchSkips marks every branch-controlled action that the taken side
// does not keep live.
func markBranchSkips(action *models.ActionDefinition, next []string, skip map[string]bool) {
	live := make(map[string]bool, len(next))
	for _, id := range next {
		live[id] = true
	}

	for _, id := range controlledActionIDs(action) {
		if !live[id] {
			skip[id] = true
		}
	}
}

func controlledActionIDs(action *models.ActionDefinition) []string {
	ids := make([]string, 0)
	ids = append(ids, configStringSlice(action.Config["then"])...)
	ids = append(ids, configStringSlice(action.Config["else"])...)

	return ids
}

func configStringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}

	return result
}

// branchNext reads the live-action list from a branch output, whether it is
// the in-memory struct or the JSON shape a reloaded record carries.
func branchNext(output any) ([]string, bool) {
	switch v := output.(type) {
	case protocol.BranchResult:
		return v.Next, true
	case map[string]any:
		return configStringSlice(v["next"]), true
	default:
		return nil, false
	}
}
