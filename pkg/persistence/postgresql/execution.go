package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

// ExecutionRepository stores execution records. Action results are an
// append-only table: attempts are inserted, never updated, so the audit
// trail survives exactly as it happened.
type ExecutionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (er *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	snapshot, err := json.Marshal(execution.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	event, err := marshalJSONB(executionEvent(execution))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = er.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, tenant_id, event_id, snapshot, event, status, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		execution.ID, execution.WorkflowID, execution.TenantID,
		execution.EventID, snapshot, event, execution.Status,
		execution.Error, execution.StartedAt, execution.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create execution %s: %w", execution.ID, err)
	}

	return nil
}

func executionEvent(execution *models.Execution) any {
	if execution.Event == nil {
		return nil
	}

	return execution.Event
}

func (er *ExecutionRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status models.ExecutionStatus,
	errorMessage string,
	completedAt *time.Time,
) error {
	result, err := er.db.ExecContext(ctx, `
		UPDATE executions SET status = $2, error = $3, completed_at = $4 WHERE id = $1
	`, id, status, errorMessage, completedAt)
	if err != nil {
		return fmt.Errorf("failed to update execution %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for execution %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

func (er *ExecutionRepository) AppendResult(ctx context.Context, executionID string, result *models.ActionResult) error {
	output, err := marshalJSONB(result.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal action output: %w", err)
	}

	_, err = er.db.ExecContext(ctx, `
		INSERT INTO action_results (execution_id, action_id, action_name, action_type, ord, attempt, status, started_at, finished_at, output, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		executionID, result.ActionID, result.ActionName, result.ActionType,
		result.Order, result.Attempt, result.Status, result.StartedAt,
		result.FinishedAt, output, result.Error)
	if err != nil {
		return fmt.Errorf("failed to append result for execution %s: %w", executionID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := er.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, tenant_id, event_id, snapshot, event, status, error, started_at, completed_at
		FROM executions WHERE id = $1
	`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	execution.Results, err = er.resultsFor(ctx, id)
	if err != nil {
		return nil, err
	}

	return execution, nil
}

func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := er.db.QueryContext(ctx, `
		SELECT id, workflow_id, tenant_id, event_id, snapshot, event, status, error, started_at, completed_at
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions for workflow %s: %w", workflowID, err)
	}

	return er.collect(ctx, rows)
}

func (er *ExecutionRepository) ListRunning(ctx context.Context) ([]*models.Execution, error) {
	rows, err := er.db.QueryContext(ctx, `
		SELECT id, workflow_id, tenant_id, event_id, snapshot, event, status, error, started_at, completed_at
		FROM executions
		WHERE status = 'RUNNING'
		ORDER BY started_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list running executions: %w", err)
	}

	return er.collect(ctx, rows)
}

func (er *ExecutionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int64, error) {
	var count int64

	err := er.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions WHERE workflow_id = $1`, workflowID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions for workflow %s: %w", workflowID, err)
	}

	return count, nil
}

func (er *ExecutionRepository) StatsByWorkflow(ctx context.Context, workflowID string) (*persistence.WorkflowStats, error) {
	stats := &persistence.WorkflowStats{}

	var lastRunAt sql.NullTime

	err := er.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'SUCCEEDED'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			MAX(started_at)
		FROM executions WHERE workflow_id = $1
	`, workflowID).Scan(&stats.TotalRuns, &stats.SucceededRuns, &stats.FailedRuns, &lastRunAt)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats for workflow %s: %w", workflowID, err)
	}

	if lastRunAt.Valid {
		stats.LastRunAt = &lastRunAt.Time
	}

	return stats, nil
}

func (er *ExecutionRepository) collect(ctx context.Context, rows *sql.Rows) ([]*models.Execution, error) {
	defer func() {
		_ = rows.Close()
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution rows: %w", err)
	}

	for _, execution := range executions {
		results, err := er.resultsFor(ctx, execution.ID)
		if err != nil {
			return nil, err
		}

		execution.Results = results
	}

	return executions, nil
}

func (er *ExecutionRepository) resultsFor(ctx context.Context, executionID string) ([]*models.ActionResult, error) {
	rows, err := er.db.QueryContext(ctx, `
		SELECT action_id, action_name, action_type, ord, attempt, status, started_at, finished_at, output, error
		FROM action_results
		WHERE execution_id = $1
		ORDER BY seq ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for execution %s: %w", executionID, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	results := make([]*models.ActionResult, 0)

	for rows.Next() {
		var (
			result models.ActionResult
			output []byte
		)

		err := rows.Scan(
			&result.ActionID, &result.ActionName, &result.ActionType,
			&result.Order, &result.Attempt, &result.Status,
			&result.StartedAt, &result.FinishedAt, &output, &result.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		if len(output) > 0 {
			err = json.Unmarshal(output, &result.Output)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal action output: %w", err)
			}
		}

		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate result rows: %w", err)
	}

	return results, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		snapshot    []byte
		event       []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&execution.ID, &execution.WorkflowID, &execution.TenantID,
		&execution.EventID, &snapshot, &event, &execution.Status,
		&execution.Error, &execution.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(snapshot, &execution.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	if len(event) > 0 {
		err = json.Unmarshal(event, &execution.Event)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	return &execution, nil
}
