package models

import "time"

// Event is the inbound contract: any producer (contact service, deal
// service, form handler, the scheduler itself) publishes this shape and the
// engine assumes nothing else about it.
type Event struct {
	ID          string         `json:"id"           validate:"required"`
	TenantID    string         `json:"tenant_id"    validate:"required"`
	TriggerType TriggerType    `json:"trigger_type" validate:"required"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// EntityID extracts the subject entity's ID from the payload when the
// producer supplied one; used for per-entity run dedup.
func (e *Event) EntityID() string {
	if e.Payload == nil {
		return ""
	}

	if id, ok := e.Payload["entity_id"].(string); ok {
		return id
	}

	return ""
}
