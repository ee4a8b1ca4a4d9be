// Package updatefield provides the workflow action that writes a single
// field on a CRM record through a pluggable backend.
package updatefield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
	"github.com/dukex/relay/pkg/template"
)

var (
	// ErrFieldInvalid is returned when the field config is missing.
	ErrFieldInvalid = errors.New("invalid field name")
	// ErrEntityInvalid is returned when the target entity cannot be
	// resolved from config or trigger payload.
	ErrEntityInvalid = errors.New("invalid target entity")
)

// FieldUpdate is the rendered write handed to the backend.
type FieldUpdate struct {
	TenantID       string
	EntityType     string
	EntityID       string
	Field          string
	Value          any
	IdempotencyKey string
}

// RecordStore applies a field write. Implementations wrap the CRM record
// store.
type RecordStore interface {
	UpdateField(ctx context.Context, update FieldUpdate) error
}

type Action struct {
	EntityType string
	EntityID   string
	Field      string
	Value      string

	store RecordStore
}

func NewAction(config map[string]any, store RecordStore) (*Action, error) {
	field, ok := config["field"].(string)
	if !ok || field == "" {
		return nil, fmt.Errorf("missing or invalid 'field' in configuration: %w", ErrFieldInvalid)
	}

	entityType, _ := config["entity_type"].(string)
	if entityType == "" {
		entityType = "contact"
	}

	entityID, _ := config["entity_id"].(string)
	value, _ := config["value"].(string)

	return &Action{
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		Value:      value,
		store:      store,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "update_field")

	entityID := a.EntityID
	if entityID == "" {
		// default to the record the triggering event was about
		if fromEvent, ok := executionCtx.TriggerData["entity_id"].(string); ok {
			entityID = fromEvent
		}
	} else {
		rendered, err := template.RenderString(entityID, &executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render entity_id template: %w", err)
		}

		entityID = rendered
	}

	if entityID == "" {
		return nil, ErrEntityInvalid
	}

	value, err := template.RenderWithContext(a.Value, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render value template: %w", err)
	}

	update := FieldUpdate{
		TenantID:       executionCtx.TenantID,
		EntityType:     a.EntityType,
		EntityID:       entityID,
		Field:          a.Field,
		Value:          value,
		IdempotencyKey: executionCtx.IdempotencyKey(executionCtx.CurrentActionID),
	}

	logger.InfoContext(ctx, "Updating record field",
		"entity_type", a.EntityType,
		"entity_id", entityID,
		"field", a.Field)

	err = a.store.UpdateField(ctx, update)
	if err != nil {
		return nil, protocol.Retryablef("failed to update %s.%s: %w", a.EntityType, a.Field, err)
	}

	return map[string]any{
		"entity_type": a.EntityType,
		"entity_id":   entityID,
		"field":       a.Field,
		"value":       value,
	}, nil
}
