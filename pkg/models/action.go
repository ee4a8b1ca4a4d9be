package models

// OnFailurePolicy decides what the coordinator does when an action fails.
type OnFailurePolicy string

const (
	OnFailureHalt     OnFailurePolicy = "HALT"
	OnFailureContinue OnFailurePolicy = "CONTINUE"
	OnFailureRetry    OnFailurePolicy = "RETRY"
)

// DefaultMaxAttempts bounds RETRY policies that do not set their own limit.
const DefaultMaxAttempts = 3

// ActionDefinition is one step of a workflow's action chain. It is immutable
// once an execution references it; edits go through the owning workflow.
type ActionDefinition struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`

	// Order defines the position in the chain; ties are broken by ID.
	Order int `json:"order" validate:"min=0"`

	// Type selects the registered action handler, e.g. "send_email",
	// "webhook_call", "delay", "branch".
	Type string `json:"type" validate:"required"`

	Config map[string]any `json:"config,omitempty"`

	Name string `json:"name,omitempty"`

	OnFailure OnFailurePolicy `json:"on_failure" validate:"required,oneof=HALT CONTINUE RETRY"`

	// MaxAttempts bounds retries for OnFailure=RETRY; zero falls back to
	// DefaultMaxAttempts.
	MaxAttempts int `json:"max_attempts,omitempty" validate:"min=0"`
}

// AttemptLimit resolves the effective retry bound for this action.
func (a *ActionDefinition) AttemptLimit() int {
	if a.MaxAttempts > 0 {
		return a.MaxAttempts
	}

	return DefaultMaxAttempts
}
