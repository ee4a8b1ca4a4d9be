// Package events defines the event types carried on the bus: the inbound
// domain-event envelope and the engine's execution lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/relay/pkg/models"
)

type EventType string

// Bus topics. Inbound domain events and scheduler fires share one topic so
// scheduled workflows go through the exact same match/execute path as
// externally-raised events.
const (
	InboundTopic   = "relay.events"
	ExecutionTopic = "relay.executions"
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	EventReceivedEvent EventType = "event.received"

	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	ExecutionResumedEvent   EventType = "execution.resumed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// EventReceived wraps an inbound domain event for transport.
type EventReceived struct {
	BaseEvent

	Event *models.Event `json:"event"`
}

func (e EventReceived) GetType() EventType {
	return EventReceivedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID  string             `json:"execution_id"`
	TenantID     string             `json:"tenant_id"`
	WorkflowName string             `json:"workflow_name"`
	TriggerType  models.TriggerType `json:"trigger_type"`
	EventID      string             `json:"event_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	TenantID        string `json:"tenant_id"`
	DurationMs      int64  `json:"duration_ms"`
	ActionsExecuted int    `json:"actions_executed"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID     string `json:"execution_id"`
	TenantID        string `json:"tenant_id"`
	Error           string `json:"error"`
	DurationMs      int64  `json:"duration_ms"`
	ActionsExecuted int    `json:"actions_executed"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	TenantID    string `json:"tenant_id"`
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

// ExecutionResumed is published when crash recovery picks an execution left
// RUNNING back up from its last persisted action result.
type ExecutionResumed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	TenantID    string `json:"tenant_id"`
	ResumeIndex int    `json:"resume_index"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}
