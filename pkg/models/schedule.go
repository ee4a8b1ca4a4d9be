package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrScheduleSpecMissing is returned when a schedule has neither a cron
	// expression nor a fire time.
	ErrScheduleSpecMissing = errors.New("schedule needs a cron expression or a fire time")
	// ErrCronExpressionInvalid is returned when the cron expression cannot
	// be parsed.
	ErrCronExpressionInvalid = errors.New("invalid cron expression")
)

// Schedule is a time-based firing entry for a workflow. Recurring schedules
// carry a cron expression; one-shot schedules carry a fixed fire time. The
// next execution time is precomputed so the poller can query due entries
// without per-schedule timers.
type Schedule struct {
	ID         string `json:"id" validate:"required"`
	WorkflowID string `json:"workflow_id" validate:"required"`
	TenantID   string `json:"tenant_id" validate:"required"`

	// CronExpression uses the standard 5-field format. Empty for one-shot
	// schedules.
	CronExpression string `json:"cron_expression,omitempty"`

	// FireAt is the single firing time of a one-shot schedule. Nil for
	// recurring schedules.
	FireAt *time.Time `json:"fire_at,omitempty"`

	NextDueAt time.Time `json:"next_due_at" validate:"required"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSchedule creates a schedule with its first due time computed. Exactly
// one of cronExpression and fireAt must be set.
func NewSchedule(id, workflowID, tenantID, cronExpression string, fireAt *time.Time) (*Schedule, error) {
	if cronExpression == "" && fireAt == nil {
		return nil, ErrScheduleSpecMissing
	}

	now := time.Now().UTC()
	schedule := &Schedule{
		ID:             id,
		WorkflowID:     workflowID,
		TenantID:       tenantID,
		CronExpression: cronExpression,
		FireAt:         fireAt,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if fireAt != nil {
		schedule.NextDueAt = fireAt.UTC()

		return schedule, nil
	}

	err := schedule.calculateNextDueAt(now)
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

// Recurring reports whether the schedule fires more than once.
func (s *Schedule) Recurring() bool {
	return s.CronExpression != ""
}

// Advance moves the schedule past a firing. Recurring schedules get their
// next due time computed from now, so firings missed while the process was
// down are collapsed into the next future slot rather than replayed.
// One-shot schedules deactivate.
func (s *Schedule) Advance() error {
	if !s.Recurring() {
		s.Active = false
		s.UpdatedAt = time.Now().UTC()

		return nil
	}

	return s.calculateNextDueAt(time.Now().UTC())
}

func (s *Schedule) calculateNextDueAt(referenceTime time.Time) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	cronSchedule, err := parser.Parse(s.CronExpression)
	if err != nil {
		return errors.Join(ErrCronExpressionInvalid, err)
	}

	s.NextDueAt = cronSchedule.Next(referenceTime)
	s.UpdatedAt = time.Now().UTC()

	return nil
}
