// Package registry holds the two engine lookup structures: the catalog of
// action handler factories and the tenant-scoped trigger index.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/relay/pkg/protocol"
)

// Registry maps action type tags to handler factories. The coordinator never
// switches on action types; adding a type is registering a factory here.
type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", actionType)
	}

	return factory.Create(config)
}

// ActionTypes lists the registered type tags.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}

// ValidateActionConfig checks an action config against the factory's JSON
// schema. Schema violations are configuration errors: the workflow is
// rejected at registration, never retried.
func (r *Registry) ValidateActionConfig(actionType string, config map[string]any) error {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return fmt.Errorf("action type %q not registered", actionType)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %q config: %w", actionType, err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			r.logger.Warn("Action config schema violation",
				"action_type", actionType,
				"violation", desc.String())
		}

		return fmt.Errorf("invalid %q config: %s", actionType, result.Errors()[0].String())
	}

	return nil
}
