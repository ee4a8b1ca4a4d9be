package webhookcall

import (
	"github.com/dukex/relay/pkg/protocol"
)

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "webhook_call"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Endpoint to call. Supports templating.",
				"examples": []string{
					"https://hooks.example.com/deals",
					"https://api.example.com/contacts/{{.trigger_data.entity_id}}",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method to use",
				"default":     "POST",
				"enum":        []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers to include. Values support templating.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Request body content. Supports templating for dynamic JSON.",
				"examples": []string{
					`{"deal": "{{.trigger_data.new.title}}", "won_at": "{{now}}"}`,
				},
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Request timeout in seconds",
				"default":     30,
				"minimum":     1,
				"maximum":     300,
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}
