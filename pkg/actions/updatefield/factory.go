package updatefield

import (
	"github.com/dukex/relay/pkg/protocol"
)

type ActionFactory struct {
	store RecordStore
}

func NewActionFactory(store RecordStore) *ActionFactory {
	return &ActionFactory{store: store}
}

func (*ActionFactory) ID() string {
	return "update_field"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.store)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_type": map[string]any{
				"type":        "string",
				"description": "Kind of record to update.",
				"default":     "contact",
				"enum":        []string{"contact", "deal", "task"},
			},
			"entity_id": map[string]any{
				"type":        "string",
				"description": "Record to update. Defaults to the record the triggering event was about. Supports templating.",
			},
			"field": map[string]any{
				"type":        "string",
				"description": "Field name to write.",
			},
			"value": map[string]any{
				"type":        "string",
				"description": "Value to write. Supports templating.",
				"examples": []string{
					"qualified",
					"{{.step_results.score.value}}",
				},
			},
		},
		"required":             []string{"field", "value"},
		"additionalProperties": false,
	}
}
