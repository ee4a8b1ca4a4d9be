package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

const dirPerm = 0o755

// WorkflowRepository stores workflow definitions as JSON files under
// <root>/workflows/<id>.json.
type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.dir(), id+".json")
}

func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := os.MkdirAll(wr.dir(), dirPerm)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	err = os.WriteFile(wr.path(workflow.ID), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(wr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(data, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	all, err := wr.all(ctx)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.TenantID == tenantID {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (wr *WorkflowRepository) ListRunnable(ctx context.Context) ([]*models.Workflow, error) {
	all, err := wr.all(ctx)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.Runnable() {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(wr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrWorkflowNotFound
		}

		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) all(ctx context.Context) ([]*models.Workflow, error) {
	if _, err := os.Stat(wr.dir()); os.IsNotExist(err) {
		return []*models.Workflow{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}
