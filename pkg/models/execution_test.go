package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func executionWithSnapshot() *Execution {
	return &Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     ExecutionStatusRunning,
		StartedAt:  time.Now().UTC(),
		Snapshot: &WorkflowSnapshot{
			WorkflowID: "wf-1",
			Actions: []*ActionDefinition{
				{ID: "act-1", Order: 0, Type: "send_email", OnFailure: OnFailureHalt},
				{ID: "act-2", Order: 1, Type: "create_task", OnFailure: OnFailureContinue},
				{ID: "act-3", Order: 2, Type: "webhook_call", OnFailure: OnFailureRetry},
			},
		},
	}
}

func TestExecutionStatus_Terminal(t *testing.T) {
	assert.False(t, ExecutionStatusRunning.Terminal())
	assert.True(t, ExecutionStatusSucceeded.Terminal())
	assert.True(t, ExecutionStatusFailed.Terminal())
	assert.True(t, ExecutionStatusCancelled.Terminal())
}

func TestExecution_NextPendingIndex(t *testing.T) {
	e := executionWithSnapshot()

	assert.Equal(t, 0, e.NextPendingIndex())

	e.Results = append(e.Results, &ActionResult{ActionID: "act-1", Attempt: 1, Status: ActionResultSucceeded})
	assert.Equal(t, 1, e.NextPendingIndex())

	// RETRYING rows leave the action pending; resume re-runs it.
	e.Results = append(e.Results, &ActionResult{ActionID: "act-2", Attempt: 1, Status: ActionResultRetrying})
	assert.Equal(t, 1, e.NextPendingIndex())

	e.Results = append(e.Results, &ActionResult{ActionID: "act-2", Attempt: 2, Status: ActionResultFailed})
	assert.Equal(t, 2, e.NextPendingIndex())

	e.Results = append(e.Results, &ActionResult{ActionID: "act-3", Attempt: 1, Status: ActionResultSkipped})
	assert.Equal(t, 3, e.NextPendingIndex())
}

func TestExecution_AttemptsFor(t *testing.T) {
	e := executionWithSnapshot()
	e.Results = []*ActionResult{
		{ActionID: "act-3", Attempt: 1, Status: ActionResultRetrying},
		{ActionID: "act-3", Attempt: 2, Status: ActionResultRetrying},
		{ActionID: "act-3", Attempt: 3, Status: ActionResultFailed},
		{ActionID: "act-1", Attempt: 1, Status: ActionResultSkipped},
	}

	assert.Equal(t, 3, e.AttemptsFor("act-3"))
	assert.Equal(t, 0, e.AttemptsFor("act-1")) // skips are not attempts
	assert.Equal(t, 0, e.AttemptsFor("act-2"))
}

func TestExecution_LastResultFor(t *testing.T) {
	e := executionWithSnapshot()

	assert.Nil(t, e.LastResultFor("act-1"))

	e.Results = []*ActionResult{
		{ActionID: "act-1", Attempt: 1, Status: ActionResultRetrying},
		{ActionID: "act-1", Attempt: 2, Status: ActionResultSucceeded},
	}

	last := e.LastResultFor("act-1")
	assert.Equal(t, 2, last.Attempt)
	assert.Equal(t, ActionResultSucceeded, last.Status)
}
