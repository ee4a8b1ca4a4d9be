package createtask

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
)

type recordingCreator struct {
	created []Task
	err     error
}

func (c *recordingCreator) CreateTask(_ context.Context, task Task) (string, error) {
	if c.err != nil {
		return "", c.err
	}

	c.created = append(c.created, task)

	return "task-1", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func executionContext() models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID:     "exec-1",
		TenantID:        "tenant-1",
		CurrentActionID: "act-2",
		TriggerData: map[string]any{
			"entity_id": "contact-9",
			"contact":   map[string]any{"name": "Ada"},
		},
	}
}

func TestNewAction_MissingTitle(t *testing.T) {
	_, err := NewAction(map[string]any{}, &recordingCreator{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskTitleInvalid)
}

func TestAction_Execute(t *testing.T) {
	creator := &recordingCreator{}
	action, err := NewAction(map[string]any{
		"title":       "Follow up with {{.trigger_data.contact.name}}",
		"due_in_days": float64(3),
	}, creator)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), executionContext(), testLogger())
	require.NoError(t, err)

	require.Len(t, creator.created, 1)
	assert.Equal(t, "tenant-1", creator.created[0].TenantID)
	assert.Equal(t, "Follow up with Ada", creator.created[0].Title)
	assert.Equal(t, "contact-9", creator.created[0].EntityID)
	assert.Equal(t, "exec-1:act-2", creator.created[0].IdempotencyKey)
	require.NotNil(t, creator.created[0].DueAt)

	resultMap := result.(map[string]any)
	assert.Equal(t, "task-1", resultMap["task_id"])
}

func TestAction_Execute_BackendFailureIsRetryable(t *testing.T) {
	creator := &recordingCreator{err: errors.New("store unavailable")}
	action, err := NewAction(map[string]any{"title": "t"}, creator)
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), executionContext(), testLogger())
	require.Error(t, err)
	assert.True(t, protocol.IsRetryable(err))
}

func TestActionFactory(t *testing.T) {
	factory := NewActionFactory(&recordingCreator{})
	assert.Equal(t, "create_task", factory.ID())
}
