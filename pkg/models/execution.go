package models

import "time"

// ExecutionStatus is the terminal-state machine of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusSucceeded || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// ActionResultStatus is the per-step sub-state recorded in the audit trail.
type ActionResultStatus string

const (
	ActionResultSucceeded ActionResultStatus = "SUCCEEDED"
	ActionResultFailed    ActionResultStatus = "FAILED"
	ActionResultRetrying  ActionResultStatus = "RETRYING"
	ActionResultSkipped   ActionResultStatus = "SKIPPED"
)

// WorkflowSnapshot is the definition copy an execution runs against.
type WorkflowSnapshot struct {
	WorkflowID    string              `json:"workflow_id"`
	WorkflowName  string              `json:"workflow_name"`
	TriggerType   TriggerType         `json:"trigger_type"`
	TriggerConfig map[string]any      `json:"trigger_config,omitempty"`
	Actions       []*ActionDefinition `json:"actions"`
}

// Execution is one concrete run of a workflow in response to one triggering
// event. Immutable after completion; re-runs create new records.
type Execution struct {
	ID          string            `json:"id"`
	WorkflowID  string            `json:"workflow_id"`
	TenantID    string            `json:"tenant_id"`
	EventID     string            `json:"event_id"`
	Snapshot    *WorkflowSnapshot `json:"snapshot"`
	Event       *Event            `json:"event"`
	Status      ExecutionStatus   `json:"status"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`

	// Results is append-only: a retried action appears as multiple rows for
	// the same action ID with increasing attempts.
	Results []*ActionResult `json:"results"`
}

// ActionResult records one attempt of one action. Never rewritten.
type ActionResult struct {
	ActionID   string             `json:"action_id"`
	ActionName string             `json:"action_name,omitempty"`
	ActionType string             `json:"action_type"`
	Order      int                `json:"order"`
	Attempt    int                `json:"attempt"`
	Status     ActionResultStatus `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Output     any                `json:"output,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// LastResultFor returns the most recent result row for an action, or nil.
func (e *Execution) LastResultFor(actionID string) *ActionResult {
	for i := len(e.Results) - 1; i >= 0; i-- {
		if e.Results[i].ActionID == actionID {
			return e.Results[i]
		}
	}

	return nil
}

// NextPendingIndex finds the first action in the snapshot without a settled
// result, which is where crash recovery resumes. An action counts as settled
// once it has a SUCCEEDED, FAILED or SKIPPED row; RETRYING rows leave it
// pending.
func (e *Execution) NextPendingIndex() int {
	settled := make(map[string]bool)

	for _, result := range e.Results {
		switch result.Status {
		case ActionResultSucceeded, ActionResultFailed, ActionResultSkipped:
			settled[result.ActionID] = true
		case ActionResultRetrying:
		}
	}

	for i, action := range e.Snapshot.Actions {
		if !settled[action.ID] {
			return i
		}
	}

	return len(e.Snapshot.Actions)
}

// ResumeAt reads the wall-clock time a parked execution is due to re-enter
// its chain from the last persisted result. Delay suspensions and retry
// backoffs both record it, so a restarted process can re-park instead of
// running the remaining wait down to zero.
func (e *Execution) ResumeAt() (time.Time, bool) {
	if len(e.Results) == 0 {
		return time.Time{}, false
	}

	output, ok := e.Results[len(e.Results)-1].Output.(map[string]any)
	if !ok {
		return time.Time{}, false
	}

	raw, ok := output["resume_at"].(string)
	if !ok {
		return time.Time{}, false
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}

	return at, true
}

// AttemptsFor counts how many attempts have been recorded for an action.
func (e *Execution) AttemptsFor(actionID string) int {
	attempts := 0

	for _, result := range e.Results {
		if result.ActionID == actionID && result.Status != ActionResultSkipped {
			attempts++
		}
	}

	return attempts
}
