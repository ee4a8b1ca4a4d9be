package logmsg

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/models"
)

func TestNewActionFactory(t *testing.T) {
	factory := NewActionFactory()
	assert.NotNil(t, factory)
	assert.Equal(t, "log", factory.ID())
}

func TestActionFactory_Create_NilConfig(t *testing.T) {
	factory := NewActionFactory()

	action, err := factory.Create(nil)
	require.NoError(t, err)
	assert.NotNil(t, action)
}

func TestNewAction_Defaults(t *testing.T) {
	action := NewAction(map[string]any{})
	assert.Equal(t, "", action.Message)
	assert.Equal(t, "info", action.Level)
}

func TestAction_Execute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	action := NewAction(map[string]any{
		"message": "Contact {{.trigger_data.contact.email}} created",
		"level":   "info",
	})

	execCtx := models.ExecutionContext{
		ExecutionID: "exec-1",
		TriggerData: map[string]any{
			"contact": map[string]any{"email": "ada@example.com"},
		},
	}

	result, err := action.Execute(context.Background(), execCtx, logger)
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Contact ada@example.com created", resultMap["message"])
	assert.Equal(t, "info", resultMap["level"])
}
