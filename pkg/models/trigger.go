package models

// TriggerType identifies the kind of domain event a workflow listens for.
// The set is open: matching is by string key, so producers can introduce
// new types without touching the engine.
type TriggerType string

const (
	TriggerContactCreated      TriggerType = "CONTACT_CREATED"
	TriggerContactUpdated      TriggerType = "CONTACT_UPDATED"
	TriggerContactStageChanged TriggerType = "CONTACT_STAGE_CHANGED"
	TriggerDealCreated         TriggerType = "DEAL_CREATED"
	TriggerDealStageChanged    TriggerType = "DEAL_STAGE_CHANGED"
	TriggerDealWon             TriggerType = "DEAL_WON"
	TriggerDealLost            TriggerType = "DEAL_LOST"
	TriggerFormSubmitted       TriggerType = "FORM_SUBMITTED"
	TriggerTaskCompleted       TriggerType = "TASK_COMPLETED"
	TriggerWebhook             TriggerType = "WEBHOOK"
	TriggerTimeBased           TriggerType = "TIME_BASED"
	TriggerRecurring           TriggerType = "RECURRING"
)

// Scheduled reports whether this trigger type fires from the scheduler
// rather than from an external event producer.
func (t TriggerType) Scheduled() bool {
	return t == TriggerTimeBased || t == TriggerRecurring
}
