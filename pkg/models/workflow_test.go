package models

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWorkflow() *Workflow {
	return &Workflow{
		ID:          "wf-1",
		TenantID:    "tenant-1",
		Name:        "Welcome new contacts",
		Status:      WorkflowStatusActive,
		TriggerType: TriggerContactCreated,
		IsActive:    true,
		Actions: []*ActionDefinition{
			{ID: "act-1", WorkflowID: "wf-1", Order: 0, Type: "send_email", OnFailure: OnFailureHalt},
		},
	}
}

func TestWorkflow_Validation(t *testing.T) {
	validate := validator.New()

	require.NoError(t, validate.Struct(validWorkflow()))

	missingTenant := validWorkflow()
	missingTenant.TenantID = ""
	assert.Error(t, validate.Struct(missingTenant))

	shortName := validWorkflow()
	shortName.Name = "ab"
	assert.Error(t, validate.Struct(shortName))

	badStatus := validWorkflow()
	badStatus.Status = "ENABLED"
	assert.Error(t, validate.Struct(badStatus))

	badPolicy := validWorkflow()
	badPolicy.Actions[0].OnFailure = "IGNORE"
	assert.Error(t, validate.Struct(badPolicy))
}

func TestWorkflow_Runnable(t *testing.T) {
	w := validWorkflow()
	assert.True(t, w.Runnable())

	w.IsActive = false
	assert.False(t, w.Runnable())

	w.IsActive = true
	w.Status = WorkflowStatusPaused
	assert.False(t, w.Runnable())

	w.Status = WorkflowStatusDraft
	assert.False(t, w.Runnable())
}

func TestWorkflow_SortedActions_OrderAndTieBreak(t *testing.T) {
	w := validWorkflow()
	w.Actions = []*ActionDefinition{
		{ID: "act-c", Order: 2, Type: "webhook_call", OnFailure: OnFailureHalt},
		{ID: "act-b", Order: 1, Type: "create_task", OnFailure: OnFailureHalt},
		{ID: "act-a", Order: 1, Type: "send_email", OnFailure: OnFailureHalt},
	}

	sorted := w.SortedActions()

	require.Len(t, sorted, 3)
	assert.Equal(t, "act-a", sorted[0].ID) // order tie broken by ID
	assert.Equal(t, "act-b", sorted[1].ID)
	assert.Equal(t, "act-c", sorted[2].ID)

	// Original slice untouched.
	assert.Equal(t, "act-c", w.Actions[0].ID)
}

func TestWorkflow_Snapshot_IsACopy(t *testing.T) {
	w := validWorkflow()

	snapshot := w.Snapshot()

	require.Len(t, snapshot.Actions, 1)
	assert.Equal(t, w.ID, snapshot.WorkflowID)
	assert.Equal(t, w.TriggerType, snapshot.TriggerType)

	// Editing the live definition must not leak into the snapshot.
	w.Actions[0].Type = "create_task"
	assert.Equal(t, "send_email", snapshot.Actions[0].Type)
}

func TestActionDefinition_AttemptLimit(t *testing.T) {
	a := &ActionDefinition{}
	assert.Equal(t, DefaultMaxAttempts, a.AttemptLimit())

	a.MaxAttempts = 5
	assert.Equal(t, 5, a.AttemptLimit())
}
