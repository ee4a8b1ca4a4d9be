// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/dukex/relay/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	TenantID          string                     `json:"tenant_id"      validate:"required"`
	Name              string                     `json:"name"           validate:"required,min=3"`
	Description       string                     `json:"description"`
	TriggerType       string                     `json:"trigger_type"   validate:"required"`
	TriggerConfig     map[string]any             `json:"trigger_config,omitempty"`
	Conditions        *models.Condition          `json:"conditions,omitempty"`
	Actions           []*models.ActionDefinition `json:"actions"        validate:"required,min=1"`
	AllowMultipleRuns bool                       `json:"allow_multiple_runs"`
	MaxRuns           int64                      `json:"max_runs,omitempty"`
}

// ToWorkflow builds the domain model. New workflows start as inactive drafts;
// activation is a separate, validated transition.
func (r *CreateWorkflowRequest) ToWorkflow() *models.Workflow {
	return &models.Workflow{
		TenantID:          r.TenantID,
		Name:              r.Name,
		Description:       r.Description,
		Status:            models.WorkflowStatusDraft,
		TriggerType:       models.TriggerType(r.TriggerType),
		TriggerConfig:     r.TriggerConfig,
		Conditions:        r.Conditions,
		Actions:           r.Actions,
		AllowMultipleRuns: r.AllowMultipleRuns,
		MaxRuns:           r.MaxRuns,
	}
}

// UpdateWorkflowRequest represents the request body for updating a workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name          *string                    `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description   *string                    `json:"description,omitempty"`
	TriggerType   *string                    `json:"trigger_type,omitempty"`
	TriggerConfig map[string]any             `json:"trigger_config,omitempty"`
	Conditions    *models.Condition          `json:"conditions,omitempty"`
	Actions       []*models.ActionDefinition `json:"actions,omitempty"`
	MaxRuns       *int64                     `json:"max_runs,omitempty"`
}

// ToggleWorkflowRequest represents the request body for activating or
// pausing a workflow.
type ToggleWorkflowRequest struct {
	Active bool `json:"active"`
}

// TestWorkflowRequest carries a sample payload for a dry-run condition
// evaluation. No execution is created.
type TestWorkflowRequest struct {
	Payload map[string]any `json:"payload"`
}

// CancelExecutionRequest represents the request body for cancelling a
// running execution.
type CancelExecutionRequest struct {
	Reason      string `json:"reason"       validate:"required"`
	CancelledBy string `json:"cancelled_by"`
}

// IngestEventRequest represents an inbound domain event from a producer
// without bus access. The ID doubles as the dedup key; producers that retry
// must reuse it.
type IngestEventRequest struct {
	ID          string         `json:"id,omitempty"`
	TenantID    string         `json:"tenant_id"    validate:"required"`
	TriggerType string         `json:"trigger_type" validate:"required"`
	OccurredAt  *time.Time     `json:"occurred_at,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}
