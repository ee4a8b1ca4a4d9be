package branch

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func branchConfig() map[string]any {
	return map[string]any{
		"condition": map[string]any{
			"op":    "gt",
			"field": "deal.value",
			"value": float64(10000),
		},
		"then": []any{"act-big"},
		"else": []any{"act-small"},
	}
}

func TestNewAction_MissingCondition(t *testing.T) {
	_, err := NewAction(map[string]any{"then": []any{"a"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBranchConditionInvalid)
}

func TestNewAction_MalformedCondition(t *testing.T) {
	_, err := NewAction(map[string]any{
		"condition": map[string]any{"op": "gt"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBranchConditionInvalid)
}

func TestAction_Execute_Then(t *testing.T) {
	action, err := NewAction(branchConfig())
	require.NoError(t, err)

	execCtx := models.ExecutionContext{
		TriggerData: map[string]any{
			"deal": map[string]any{"value": float64(50000)},
		},
	}

	result, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	branchResult, ok := result.(protocol.BranchResult)
	require.True(t, ok)
	assert.True(t, branchResult.Matched)
	assert.Equal(t, []string{"act-big"}, branchResult.Next)
}

func TestAction_Execute_Else(t *testing.T) {
	action, err := NewAction(branchConfig())
	require.NoError(t, err)

	execCtx := models.ExecutionContext{
		TriggerData: map[string]any{
			"deal": map[string]any{"value": float64(500)},
		},
	}

	result, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	branchResult := result.(protocol.BranchResult)
	assert.False(t, branchResult.Matched)
	assert.Equal(t, []string{"act-small"}, branchResult.Next)
}

func TestAction_Execute_MissingFieldFailsClosed(t *testing.T) {
	action, err := NewAction(branchConfig())
	require.NoError(t, err)

	execCtx := models.ExecutionContext{
		TriggerData: map[string]any{"contact": map[string]any{}},
	}

	result, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	branchResult := result.(protocol.BranchResult)
	assert.False(t, branchResult.Matched)
}

func TestActionFactory(t *testing.T) {
	factory := NewActionFactory()
	assert.Equal(t, "conditional_branch", factory.ID())

	action, err := factory.Create(branchConfig())
	require.NoError(t, err)
	assert.NotNil(t, action)
}
