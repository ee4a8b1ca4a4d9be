package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

// ScheduleRepository stores one firing entry per scheduled workflow.
type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (sr *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	_, err := sr.db.ExecContext(ctx, `
		INSERT INTO schedules (id, workflow_id, tenant_id, cron_expression, fire_at, next_due_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (workflow_id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			fire_at = EXCLUDED.fire_at,
			next_due_at = EXCLUDED.next_due_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`,
		schedule.ID, schedule.WorkflowID, schedule.TenantID,
		schedule.CronExpression, schedule.FireAt, schedule.NextDueAt,
		schedule.Active, schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", schedule.ID, err)
	}

	return nil
}

func (sr *ScheduleRepository) GetByWorkflowID(ctx context.Context, workflowID string) (*models.Schedule, error) {
	row := sr.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, tenant_id, cron_expression, fire_at, next_due_at, active, created_at, updated_at
		FROM schedules WHERE workflow_id = $1
	`, workflowID)

	schedule, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, fmt.Errorf("failed to get schedule for workflow %s: %w", workflowID, err)
	}

	return schedule, nil
}

func (sr *ScheduleRepository) Delete(ctx context.Context, workflowID string) error {
	result, err := sr.db.ExecContext(ctx, `DELETE FROM schedules WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule for workflow %s: %w", workflowID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for workflow %s: %w", workflowID, err)
	}

	if affected == 0 {
		return persistence.ErrScheduleNotFound
	}

	return nil
}

func (sr *ScheduleRepository) Due(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	rows, err := sr.db.QueryContext(ctx, `
		SELECT id, workflow_id, tenant_id, cron_expression, fire_at, next_due_at, active, created_at, updated_at
		FROM schedules
		WHERE active = true AND next_due_at <= $1
		ORDER BY next_due_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	schedules := make([]*models.Schedule, 0)

	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule rows: %w", err)
	}

	return schedules, nil
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var (
		schedule models.Schedule
		fireAt   sql.NullTime
	)

	err := row.Scan(
		&schedule.ID, &schedule.WorkflowID, &schedule.TenantID,
		&schedule.CronExpression, &fireAt, &schedule.NextDueAt,
		&schedule.Active, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if fireAt.Valid {
		schedule.FireAt = &fireAt.Time
	}

	return &schedule, nil
}
