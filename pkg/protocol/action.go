// Package protocol defines the contracts between the coordinator and
// pluggable action handlers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/relay/pkg/models"
)

// Action executes exactly one workflow step. Handlers must tolerate
// at-least-once re-invocation; the execution context provides a stable
// idempotency key for suppressing duplicate side effects.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory creates handler instances from an action definition's
// config. A malformed config is a configuration error: Create fails and the
// workflow is rejected at registration, never retried.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
	Schema() map[string]any
}
