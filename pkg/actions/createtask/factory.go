package createtask

import (
	"github.com/dukex/relay/pkg/protocol"
)

type ActionFactory struct {
	creator Creator
}

func NewActionFactory(creator Creator) *ActionFactory {
	return &ActionFactory{creator: creator}
}

func (*ActionFactory) ID() string {
	return "create_task"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.creator)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title. Supports templating.",
				"examples": []string{
					"Follow up with {{.trigger_data.contact.name}}",
				},
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Task description. Supports templating.",
			},
			"assignee_id": map[string]any{
				"type":        "string",
				"description": "User the task is assigned to.",
			},
			"due_in_days": map[string]any{
				"type":        "integer",
				"description": "Days from now until the task is due.",
				"minimum":     0,
			},
		},
		"required":             []string{"title"},
		"additionalProperties": false,
	}
}
