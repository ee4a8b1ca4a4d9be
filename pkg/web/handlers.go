// Package web provides HTTP handlers and REST API endpoints for workflow
// management and the execution read surface.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/dukex/relay/pkg/eventbus"
	"github.com/dukex/relay/pkg/events"
	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/services"
)

const defaultExecutionListLimit = 50

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	publisher        eventbus.EventPublisher
	validator        *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		publisher:        publisher,
		validator:        validator,
	}
}

// GetWorkflows lists a tenant's workflows with their run stats.
func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	overviews, err := h.workflowService.ListByTenant(c.Context(), tenantID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   overviews,
		"total_count": len(overviews),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.ToWorkflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.TriggerType != nil {
		existing.TriggerType = models.TriggerType(*req.TriggerType)
	}

	if req.TriggerConfig != nil {
		existing.TriggerConfig = req.TriggerConfig
	}

	if req.Conditions != nil {
		existing.Conditions = req.Conditions
	}

	if req.Actions != nil {
		existing.Actions = req.Actions
	}

	if req.MaxRuns != nil {
		existing.MaxRuns = *req.MaxRuns
	}

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

// ToggleWorkflow activates or pauses a workflow. Activation re-validates,
// so a 400 here means the stored definition no longer passes its schemas.
func (h *APIHandlers) ToggleWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req ToggleWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.workflowService.Toggle(c.Context(), id, req.Active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TestWorkflow dry-runs a workflow's condition tree against a sample
// payload. Evaluation is pure, so nothing fires and nothing is recorded.
func (h *APIHandlers) TestWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req TestWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	matched := true

	var warnings []string

	if workflow.Conditions != nil {
		matched, warnings = workflow.Conditions.Match(req.Payload)
	}

	if warnings == nil {
		warnings = []string{}
	}

	return c.JSON(fiber.Map{
		"matched":  matched,
		"warnings": warnings,
	})
}

// GetWorkflowExecutions lists the most recent executions of a workflow.
func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if _, err := h.workflowService.FetchByID(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	limit := defaultExecutionListLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = parsed
	}

	executions, err := h.executionService.ListByWorkflow(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

// GetExecution returns an execution with its full action result timeline.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executionService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// CancelExecution requests cancellation of a running execution.
func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req CancelExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.executionService.Cancel(c.Context(), id, req.Reason, req.CancelledBy); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// IngestEvent accepts a domain event over HTTP and publishes it to the
// inbound topic, for producers that cannot reach the bus directly.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req IngestEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := &models.Event{
		ID:          req.ID,
		TenantID:    req.TenantID,
		TriggerType: models.TriggerType(req.TriggerType),
		Payload:     req.Payload,
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if req.OccurredAt != nil {
		event.OccurredAt = *req.OccurredAt
	} else {
		event.OccurredAt = time.Now().UTC()
	}

	wrapped := events.EventReceived{
		BaseEvent: events.NewBaseEvent(events.EventReceivedEvent, ""),
		Event:     event,
	}

	if err := h.publisher.Publish(c.Context(), events.InboundTopic, event.TenantID, wrapped); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"event_id": event.ID})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Relay API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Relay API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
