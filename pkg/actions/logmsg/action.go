// Package logmsg provides an action that writes a templated message to the
// engine log. Useful for workflow debugging without side effects.
package logmsg

import (
	"context"
	"log/slog"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/template"
)

type Action struct {
	Message string
	Level   string
}

func NewAction(config map[string]any) *Action {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Action{
		Message: message,
		Level:   level,
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "log")

	message := a.Message

	if message != "" {
		rendered, err := template.RenderString(message, &executionCtx)
		if err == nil {
			message = rendered
		} else {
			logger.WarnContext(ctx, "Failed to render log message template", "error", err)
		}
	}

	switch a.Level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn", "warning":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return map[string]any{
		"message": message,
		"level":   a.Level,
	}, nil
}
