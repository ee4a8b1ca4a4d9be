package logmsg

import (
	"github.com/dukex/relay/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "log"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config), nil
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log. Supports templating for dynamic content.",
				"examples": []string{
					"Deal won: {{.trigger_data.new.title}}",
					"Contact {{.trigger_data.contact.email}} entered stage {{.trigger_data.new.stage}}",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "warning", "error"},
			},
		},
		"required": []string{"message"},
	}
}
