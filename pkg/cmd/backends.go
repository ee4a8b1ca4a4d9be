package cmd

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukex/relay/pkg/actions/createtask"
	"github.com/dukex/relay/pkg/actions/sendemail"
	"github.com/dukex/relay/pkg/actions/updatefield"
)

// Log-backed side-effect backends. The reference binary records what it
// would have done; deployments register factories built around their own
// Sender, Creator and RecordStore implementations instead.

type logSender struct {
	logger *slog.Logger
}

func (s *logSender) Send(ctx context.Context, email sendemail.Email) error {
	s.logger.InfoContext(ctx, "Email delivery",
		"to", email.To,
		"subject", email.Subject,
		"idempotency_key", email.IdempotencyKey)

	return nil
}

type logTaskCreator struct {
	logger *slog.Logger
}

func (c *logTaskCreator) CreateTask(ctx context.Context, task createtask.Task) (string, error) {
	id := uuid.New().String()

	c.logger.InfoContext(ctx, "Task creation",
		"task_id", id,
		"tenant_id", task.TenantID,
		"title", task.Title,
		"idempotency_key", task.IdempotencyKey)

	return id, nil
}

type logRecordStore struct {
	logger *slog.Logger
}

func (s *logRecordStore) UpdateField(ctx context.Context, update updatefield.FieldUpdate) error {
	s.logger.InfoContext(ctx, "Field update",
		"tenant_id", update.TenantID,
		"entity_type", update.EntityType,
		"entity_id", update.EntityID,
		"field", update.Field,
		"idempotency_key", update.IdempotencyKey)

	return nil
}
