package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

// WorkflowRepository stores workflow definitions; the nested action chain
// and condition tree live as JSONB documents.
type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = `
	id, tenant_id, name, description, status, trigger_type, trigger_config,
	conditions, is_active, actions, allow_multiple_runs, max_runs,
	created_at, updated_at
`

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	triggerConfig, err := marshalJSONB(workflow.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	conditions, err := marshalJSONB(workflow.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actions, err := json.Marshal(workflow.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	_, err = wr.db.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			conditions = EXCLUDED.conditions,
			is_active = EXCLUDED.is_active,
			actions = EXCLUDED.actions,
			allow_multiple_runs = EXCLUDED.allow_multiple_runs,
			max_runs = EXCLUDED.max_runs,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID, workflow.TenantID, workflow.Name, workflow.Description,
		workflow.Status, workflow.TriggerType, triggerConfig, conditions,
		workflow.IsActive, actions, workflow.AllowMultipleRuns,
		workflow.MaxRuns, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := wr.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to get workflow %s: %w", id, err)
	}

	return workflow, nil
}

func (wr *WorkflowRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	rows, err := wr.db.QueryContext(ctx, `
		SELECT `+workflowColumns+` FROM workflows
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows for tenant %s: %w", tenantID, err)
	}

	return collectWorkflows(rows)
}

func (wr *WorkflowRepository) ListRunnable(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := wr.db.QueryContext(ctx, `
		SELECT `+workflowColumns+` FROM workflows
		WHERE is_active = true AND status = 'ACTIVE'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runnable workflows: %w", err)
	}

	return collectWorkflows(rows)
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := wr.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result for workflow %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		triggerConfig []byte
		conditions    []byte
		actions       []byte
	)

	err := row.Scan(
		&workflow.ID, &workflow.TenantID, &workflow.Name, &workflow.Description,
		&workflow.Status, &workflow.TriggerType, &triggerConfig, &conditions,
		&workflow.IsActive, &actions, &workflow.AllowMultipleRuns,
		&workflow.MaxRuns, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(triggerConfig) > 0 {
		err = json.Unmarshal(triggerConfig, &workflow.TriggerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	if len(conditions) > 0 {
		err = json.Unmarshal(conditions, &workflow.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	if len(actions) > 0 {
		err = json.Unmarshal(actions, &workflow.Actions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	return &workflow, nil
}

func collectWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	defer func() {
		_ = rows.Close()
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflow rows: %w", err)
	}

	return workflows, nil
}

// marshalJSONB encodes a value for a nullable JSONB column; nil stays NULL.
func marshalJSONB(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if v == nil {
			return nil, nil
		}
	case *models.Condition:
		if v == nil {
			return nil, nil
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return data, nil
}
