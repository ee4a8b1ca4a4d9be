// Package createtask provides the workflow action that opens a task in the
// tenant's task list through a pluggable backend.
package createtask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
	"github.com/dukex/relay/pkg/template"
)

// ErrTaskTitleInvalid is returned when the title config is missing.
var ErrTaskTitleInvalid = errors.New("invalid task title")

// Task is the rendered task handed to the backend.
type Task struct {
	TenantID       string
	Title          string
	Description    string
	AssigneeID     string
	EntityID       string
	DueAt          *time.Time
	IdempotencyKey string
}

// Creator persists a task. Implementations wrap the CRM task store.
type Creator interface {
	CreateTask(ctx context.Context, task Task) (string, error)
}

type Action struct {
	Title       string
	Description string
	AssigneeID  string
	DueInDays   int

	creator Creator
}

func NewAction(config map[string]any, creator Creator) (*Action, error) {
	title, ok := config["title"].(string)
	if !ok || title == "" {
		return nil, fmt.Errorf("missing or invalid 'title' in configuration: %w", ErrTaskTitleInvalid)
	}

	description, _ := config["description"].(string)
	assigneeID, _ := config["assignee_id"].(string)

	dueInDays := 0
	if raw, ok := config["due_in_days"].(float64); ok {
		dueInDays = int(raw)
	}

	return &Action{
		Title:       title,
		Description: description,
		AssigneeID:  assigneeID,
		DueInDays:   dueInDays,
		creator:     creator,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "create_task")

	title, err := template.RenderString(a.Title, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render title template: %w", err)
	}

	description, err := template.RenderString(a.Description, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render description template: %w", err)
	}

	task := Task{
		TenantID:       executionCtx.TenantID,
		Title:          title,
		Description:    description,
		AssigneeID:     a.AssigneeID,
		IdempotencyKey: executionCtx.IdempotencyKey(executionCtx.CurrentActionID),
	}

	if entityID, ok := executionCtx.TriggerData["entity_id"].(string); ok {
		task.EntityID = entityID
	}

	if a.DueInDays > 0 {
		dueAt := time.Now().UTC().AddDate(0, 0, a.DueInDays)
		task.DueAt = &dueAt
	}

	logger.InfoContext(ctx, "Creating task", "title", title)

	taskID, err := a.creator.CreateTask(ctx, task)
	if err != nil {
		return nil, protocol.Retryablef("failed to create task: %w", err)
	}

	return map[string]any{
		"task_id": taskID,
		"title":   title,
	}, nil
}
