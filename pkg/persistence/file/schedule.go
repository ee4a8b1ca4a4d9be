package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/persistence"
)

// ScheduleRepository stores firing entries as JSON files under
// <root>/schedules/<workflow-id>.json, one schedule per workflow.
type ScheduleRepository struct {
	root string
}

func NewScheduleRepository(root string) *ScheduleRepository {
	return &ScheduleRepository{root: root}
}

func (sr *ScheduleRepository) dir() string {
	return filepath.Join(sr.root, "schedules")
}

func (sr *ScheduleRepository) path(workflowID string) string {
	return filepath.Join(sr.dir(), workflowID+".json")
}

func (sr *ScheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	err := os.MkdirAll(sr.dir(), dirPerm)
	if err != nil {
		return fmt.Errorf("failed to create schedules directory: %w", err)
	}

	data, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule %s: %w", schedule.ID, err)
	}

	err = os.WriteFile(sr.path(schedule.WorkflowID), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write schedule %s: %w", schedule.ID, err)
	}

	return nil
}

func (sr *ScheduleRepository) GetByWorkflowID(_ context.Context, workflowID string) (*models.Schedule, error) {
	data, err := os.ReadFile(sr.path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, fmt.Errorf("failed to read schedule for workflow %s: %w", workflowID, err)
	}

	var schedule models.Schedule

	err = json.Unmarshal(data, &schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule for workflow %s: %w", workflowID, err)
	}

	return &schedule, nil
}

func (sr *ScheduleRepository) Delete(_ context.Context, workflowID string) error {
	err := os.Remove(sr.path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrScheduleNotFound
		}

		return fmt.Errorf("failed to delete schedule for workflow %s: %w", workflowID, err)
	}

	return nil
}

func (sr *ScheduleRepository) Due(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	if _, err := os.Stat(sr.dir()); os.IsNotExist(err) {
		return []*models.Schedule{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(sr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule files: %w", err)
	}

	due := make([]*models.Schedule, 0)

	for _, file := range jsonFiles {
		workflowID := file[:len(file)-len(".json")]

		schedule, err := sr.GetByWorkflowID(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load schedule for workflow %s: %w", workflowID, err)
		}

		if schedule.Active && !schedule.NextDueAt.After(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}
