package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

// ExecutionRepository stores execution records as JSON files under
// <root>/executions/<id>.json. UpdateStatus and AppendResult rewrite the
// whole document; the mutex keeps concurrent read-modify-write cycles on
// one process consistent.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

func (er *ExecutionRepository) path(id string) string {
	return filepath.Join(er.dir(), id+".json")
}

func (er *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	return er.write(execution)
}

func (er *ExecutionRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status models.ExecutionStatus,
	errorMessage string,
	completedAt *time.Time,
) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.read(id)
	if err != nil {
		return err
	}

	execution.Status = status
	execution.Error = errorMessage
	execution.CompletedAt = completedAt

	return er.write(execution)
}

func (er *ExecutionRepository) AppendResult(ctx context.Context, executionID string, result *models.ActionResult) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.read(executionID)
	if err != nil {
		return err
	}

	execution.Results = append(execution.Results, result)

	return er.write(execution)
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	return er.read(id)
}

func (er *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	all, err := er.all(ctx)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

func (er *ExecutionRepository) ListRunning(ctx context.Context) ([]*models.Execution, error) {
	all, err := er.all(ctx)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.Status == models.ExecutionStatusRunning {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}

func (er *ExecutionRepository) CountByWorkflow(ctx context.Context, workflowID string) (int64, error) {
	all, err := er.all(ctx)
	if err != nil {
		return 0, err
	}

	var count int64

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			count++
		}
	}

	return count, nil
}

func (er *ExecutionRepository) StatsByWorkflow(ctx context.Context, workflowID string) (*persistence.WorkflowStats, error) {
	all, err := er.all(ctx)
	if err != nil {
		return nil, err
	}

	stats := &persistence.WorkflowStats{}

	for _, execution := range all {
		if execution.WorkflowID != workflowID {
			continue
		}

		stats.TotalRuns++

		switch execution.Status {
		case models.ExecutionStatusSucceeded:
			stats.SucceededRuns++
		case models.ExecutionStatusFailed:
			stats.FailedRuns++
		case models.ExecutionStatusRunning, models.ExecutionStatusCancelled:
		}

		if stats.LastRunAt == nil || execution.StartedAt.After(*stats.LastRunAt) {
			startedAt := execution.StartedAt
			stats.LastRunAt = &startedAt
		}
	}

	return stats, nil
}

func (er *ExecutionRepository) read(id string) (*models.Execution, error) {
	data, err := os.ReadFile(er.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.Execution

	err = json.Unmarshal(data, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) write(execution *models.Execution) error {
	err := os.MkdirAll(er.dir(), dirPerm)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = os.WriteFile(er.path(execution.ID), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) all(_ context.Context) ([]*models.Execution, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	if _, err := os.Stat(er.dir()); os.IsNotExist(err) {
		return []*models.Execution{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(er.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := file[:len(file)-len(".json")]

		execution, err := er.read(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		executions = append(executions, execution)
	}

	return executions, nil
}
