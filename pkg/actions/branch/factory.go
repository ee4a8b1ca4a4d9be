package branch

import (
	"github.com/dukex/relay/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "conditional_branch"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "object",
				"description": "Condition tree evaluated against the trigger payload.",
				"examples": []map[string]any{
					{"op": "gt", "field": "deal.value", "value": 10000},
					{
						"op": "and",
						"children": []map[string]any{
							{"op": "eq", "field": "contact.source", "value": "webinar"},
							{"op": "contains", "field": "contact.tags", "value": "vip"},
						},
					},
				},
			},
			"then": map[string]any{
				"type":        "array",
				"description": "Action IDs that stay live when the condition holds.",
				"items":       map[string]any{"type": "string"},
			},
			"else": map[string]any{
				"type":        "array",
				"description": "Action IDs that stay live when the condition does not hold.",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required":             []string{"condition"},
		"additionalProperties": false,
	}
}
