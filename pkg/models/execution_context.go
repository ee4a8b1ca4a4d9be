package models

// ExecutionContext is what action handlers see: the triggering event payload
// plus the cumulative outputs of prior actions in the chain.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	TenantID    string         `json:"tenant_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	StepResults map[string]any `json:"step_results,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// CurrentActionID identifies the action being executed. The coordinator
	// sets it before each handler call.
	CurrentActionID string `json:"current_action_id,omitempty"`
}

// IdempotencyKey derives the stable key handlers use to suppress duplicate
// side effects across at-least-once retries. The attempt group deliberately
// excludes the attempt counter: all attempts of one logical action step
// share the key, so a retried webhook or email does not double-send.
func (c *ExecutionContext) IdempotencyKey(actionID string) string {
	return c.ExecutionID + ":" + actionID
}
