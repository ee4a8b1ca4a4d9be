package sendemail

import (
	"github.com/dukex/relay/pkg/protocol"
)

// ActionFactory creates send_email actions bound to a sender backend.
type ActionFactory struct {
	sender Sender
}

func NewActionFactory(sender Sender) *ActionFactory {
	return &ActionFactory{sender: sender}
}

func (*ActionFactory) ID() string {
	return "send_email"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.sender)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address. Supports templating.",
				"examples": []string{
					"{{.trigger_data.contact.email}}",
					"sales@example.com",
				},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports templating.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Message body. Supports templating.",
			},
		},
		"required":             []string{"to", "subject"},
		"additionalProperties": false,
	}
}
