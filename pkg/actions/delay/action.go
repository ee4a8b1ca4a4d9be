// Package delay provides the workflow action that pauses the chain for a
// configured duration. The action never blocks a worker: it asks the
// coordinator to suspend the execution and resume it on a timer.
package delay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
)

// ErrDurationInvalid is returned when no usable duration is configured.
var ErrDurationInvalid = errors.New("invalid delay duration")

type Action struct {
	Duration time.Duration
}

func NewAction(config map[string]any) (*Action, error) {
	if raw, ok := config["duration"].(string); ok && raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse 'duration' %q: %w", raw, ErrDurationInvalid)
		}

		if duration <= 0 {
			return nil, fmt.Errorf("'duration' must be positive: %w", ErrDurationInvalid)
		}

		return &Action{Duration: duration}, nil
	}

	if raw, ok := config["seconds"].(float64); ok {
		if raw <= 0 {
			return nil, fmt.Errorf("'seconds' must be positive: %w", ErrDurationInvalid)
		}

		return &Action{Duration: time.Duration(raw) * time.Second}, nil
	}

	return nil, fmt.Errorf("missing 'duration' or 'seconds' in configuration: %w", ErrDurationInvalid)
}

func (a *Action) Execute(ctx context.Context, _ models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "delay")
	logger.InfoContext(ctx, "Suspending execution", "duration", a.Duration.String())

	return nil, protocol.Suspend(a.Duration)
}
