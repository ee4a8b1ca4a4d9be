// Package scheduler turns time into events. A single poller queries due
// schedule entries and publishes a synthetic domain event for each onto the
// inbound topic, so scheduled workflows go through the exact same dispatch
// path as externally-triggered ones. No per-schedule goroutines or timers.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/events"
	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

const defaultPollInterval = 5 * time.Second

type Scheduler struct {
	logger       *slog.Logger
	schedules    persistence.ScheduleRepository
	publisher    eventbus.EventPublisher
	pollInterval time.Duration

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewScheduler(
	logger *slog.Logger,
	schedules persistence.ScheduleRepository,
	publisher eventbus.EventPublisher,
	pollInterval time.Duration,
) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Scheduler{
		logger:       logger.With("module", "scheduler"),
		schedules:    schedules,
		publisher:    publisher,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
	}
}

// Start launches the polling loop. It returns immediately; Stop blocks
// until the loop drains.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		s.logger.InfoContext(ctx, "Scheduler started", "poll_interval", s.pollInterval.String())

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.processDue(ctx)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

// Sync creates, updates or removes the schedule entry for a workflow so it
// reflects the workflow's current trigger config and runnability. Called on
// every workflow transition.
func (s *Scheduler) Sync(ctx context.Context, workflow *models.Workflow) error {
	if !workflow.TriggerType.Scheduled() || !workflow.Runnable() {
		return s.Remove(ctx, workflow.ID)
	}

	schedule, err := ScheduleFor(workflow)
	if err != nil {
		return err
	}

	// keep the original creation time and ID on updates
	existing, err := s.schedules.GetByWorkflowID(ctx, workflow.ID)
	if err == nil {
		schedule.ID = existing.ID
		schedule.CreatedAt = existing.CreatedAt

		// A fired one-shot stays fired. Only moving fire_at to a new slot
		// re-arms it; otherwise every restart or toggle would fire it again.
		if !schedule.Recurring() && !existing.Active && sameFireAt(existing.FireAt, schedule.FireAt) {
			schedule.Active = false
		}
	}

	err = s.schedules.Save(ctx, schedule)
	if err != nil {
		return fmt.Errorf("failed to save schedule for workflow %s: %w", workflow.ID, err)
	}

	s.logger.InfoContext(ctx, "Schedule synced",
		"workflow_id", workflow.ID,
		"next_due_at", schedule.NextDueAt)

	return nil
}

func sameFireAt(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.Equal(*b)
}

// Remove drops the schedule entry of a workflow, if one exists.
func (s *Scheduler) Remove(ctx context.Context, workflowID string) error {
	err := s.schedules.Delete(ctx, workflowID)
	if err != nil && !persistence.IsNotFound(err) {
		return fmt.Errorf("failed to remove schedule for workflow %s: %w", workflowID, err)
	}

	return nil
}

// ScheduleFor builds the firing entry a scheduled workflow's trigger config
// describes: "cron" for RECURRING, "fire_at" (RFC 3339) for TIME_BASED.
func ScheduleFor(workflow *models.Workflow) (*models.Schedule, error) {
	cronExpression, _ := workflow.TriggerConfig["cron"].(string)

	var fireAt *time.Time

	if raw, ok := workflow.TriggerConfig["fire_at"].(string); ok {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fire_at %q: %w", raw, err)
		}

		fireAt = &parsed
	}

	schedule, err := models.NewSchedule(uuid.New().String(), workflow.ID, workflow.TenantID, cronExpression, fireAt)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule for workflow %s: %w", workflow.ID, err)
	}

	return schedule, nil
}

func (s *Scheduler) processDue(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.schedules.Due(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query due schedules", "error", err)

		return
	}

	for _, schedule := range due {
		err := s.fire(ctx, schedule, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to fire schedule",
				"schedule_id", schedule.ID,
				"workflow_id", schedule.WorkflowID,
				"error", err)
		}
	}
}

// fire publishes one synthetic event and advances the schedule. The advance
// computes the next slot from now, so firings missed during downtime
// collapse into a single catch-up fire instead of replaying.
func (s *Scheduler) fire(ctx context.Context, schedule *models.Schedule, now time.Time) error {
	triggerType := models.TriggerRecurring
	if !schedule.Recurring() {
		triggerType = models.TriggerTimeBased
	}

	event := &models.Event{
		ID:          uuid.New().String(),
		TenantID:    schedule.TenantID,
		TriggerType: triggerType,
		OccurredAt:  now,
		Payload: map[string]any{
			"workflow_id":  schedule.WorkflowID,
			"schedule_id":  schedule.ID,
			"scheduled_at": schedule.NextDueAt.Format(time.RFC3339),
		},
	}

	wrapped := events.EventReceived{
		BaseEvent: events.NewBaseEvent(events.EventReceivedEvent, schedule.WorkflowID),
		Event:     event,
	}

	err := s.publisher.Publish(ctx, events.InboundTopic, schedule.TenantID, wrapped)
	if err != nil {
		return fmt.Errorf("failed to publish scheduled event: %w", err)
	}

	err = schedule.Advance()
	if err != nil {
		return fmt.Errorf("failed to advance schedule: %w", err)
	}

	err = s.schedules.Save(ctx, schedule)
	if err != nil {
		return fmt.Errorf("failed to persist advanced schedule: %w", err)
	}

	s.logger.InfoContext(ctx, "Schedule fired",
		"workflow_id", schedule.WorkflowID,
		"trigger_type", triggerType,
		"next_due_at", schedule.NextDueAt)

	return nil
}
