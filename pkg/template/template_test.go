package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/models"
)

func executionContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		TenantID:    "tenant-1",
		TriggerData: map[string]any{
			"contact": map[string]any{
				"email": "ada@example.com",
				"name":  "Ada",
			},
		},
		StepResults: map[string]any{
			"lookup": map[string]any{"id": "c-42"},
		},
	}
}

func TestRenderWithContext_TriggerData(t *testing.T) {
	result, err := RenderWithContext("{{.trigger_data.contact.email}}", executionContext())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", result)
}

func TestRenderWithContext_StepResults(t *testing.T) {
	result, err := RenderWithContext("{{.step_results.lookup.id}}", executionContext())
	require.NoError(t, err)
	assert.Equal(t, "c-42", result)
}

func TestRenderWithContext_ExecutionFields(t *testing.T) {
	result, err := RenderWithContext("{{.execution.workflow_id}}", executionContext())
	require.NoError(t, err)
	assert.Equal(t, "wf-1", result)
}

func TestRender_JSONOutputDecoded(t *testing.T) {
	result, err := RenderWithContext(`{"to": "{{.trigger_data.contact.email}}"}`, executionContext())
	require.NoError(t, err)

	decoded, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", decoded["to"])
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := RenderWithContext("{{.broken", executionContext())
	assert.Error(t, err)
}

func TestRenderString(t *testing.T) {
	result, err := RenderString("Hello {{.trigger_data.contact.name}}", executionContext())
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", result)
}
