// Package models defines the core domain models for the workflow automation engine.
package models

import (
	"sort"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "DRAFT"
	WorkflowStatusActive   WorkflowStatus = "ACTIVE"
	WorkflowStatusPaused   WorkflowStatus = "PAUSED"
	WorkflowStatusArchived WorkflowStatus = "ARCHIVED"
)

// Workflow is a tenant-defined automation: a trigger, optional conditions,
// and an ordered chain of actions. A running execution never reads the live
// definition; it works from the snapshot captured at trigger time.
type Workflow struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"      validate:"required"`
	Name        string         `json:"name"           validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"         validate:"required,oneof=DRAFT ACTIVE PAUSED ARCHIVED"`
	TriggerType TriggerType    `json:"trigger_type"   validate:"required"`

	// TriggerConfig holds trigger-specific parameters, e.g. "cron" for
	// RECURRING or "fire_at" for TIME_BASED.
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`

	Conditions *Condition          `json:"conditions,omitempty"`
	IsActive   bool                `json:"is_active"`
	Actions    []*ActionDefinition `json:"actions" validate:"dive"`

	// AllowMultipleRuns permits more than one execution per entity. When
	// false the dispatch dedup key includes the triggering entity, so a
	// contact re-entering a stage does not re-run the workflow for it.
	AllowMultipleRuns bool `json:"allow_multiple_runs"`

	// MaxRuns caps total executions of this workflow; zero means unlimited.
	MaxRuns int64 `json:"max_runs,omitempty" validate:"min=0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Runnable reports whether the workflow may produce new executions.
// The IsActive gate is independent of Status so operators can pause a
// workflow without losing the DRAFT/ACTIVE distinction.
func (w *Workflow) Runnable() bool {
	return w.IsActive && w.Status == WorkflowStatusActive
}

// SortedActions returns the action chain ordered by Order, ties broken by ID.
func (w *Workflow) SortedActions() []*ActionDefinition {
	actions := make([]*ActionDefinition, len(w.Actions))
	copy(actions, w.Actions)

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Order != actions[j].Order {
			return actions[i].Order < actions[j].Order
		}

		return actions[i].ID < actions[j].ID
	})

	return actions
}

// Snapshot copies the parts of the definition an execution depends on, so
// edits to the workflow never affect runs already in flight.
func (w *Workflow) Snapshot() *WorkflowSnapshot {
	actions := w.SortedActions()

	copied := make([]*ActionDefinition, len(actions))
	for i, action := range actions {
		a := *action
		copied[i] = &a
	}

	return &WorkflowSnapshot{
		WorkflowID:    w.ID,
		WorkflowName:  w.Name,
		TriggerType:   w.TriggerType,
		TriggerConfig: w.TriggerConfig,
		Actions:       copied,
	}
}
