package delay

import (
	"github.com/dukex/relay/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "delay"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":        "string",
				"description": "How long to wait before the next action, as a duration string.",
				"examples":    []string{"30s", "5m", "2h", "24h"},
			},
			"seconds": map[string]any{
				"type":        "integer",
				"description": "How long to wait before the next action, in seconds.",
				"minimum":     1,
			},
		},
		"additionalProperties": false,
	}
}
