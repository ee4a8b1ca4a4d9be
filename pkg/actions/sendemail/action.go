// Package sendemail provides the workflow action that delivers an email
// through a pluggable sender backend.
package sendemail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
	"github.com/dukex/relay/pkg/template"
)

// ErrEmailToInvalid is returned when the recipient config is missing.
var ErrEmailToInvalid = errors.New("invalid email recipient")

// Email is the rendered message handed to the sender backend. The
// idempotency key is stable across retry attempts of the same action, so
// backends can suppress duplicate deliveries.
type Email struct {
	To             string
	Subject        string
	Body           string
	IdempotencyKey string
}

// Sender delivers a rendered email. Implementations wrap SMTP relays or
// provider APIs.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

type Action struct {
	To      string
	Subject string
	Body    string

	sender Sender
}

func NewAction(config map[string]any, sender Sender) (*Action, error) {
	to, ok := config["to"].(string)
	if !ok || to == "" {
		return nil, fmt.Errorf("missing or invalid 'to' in configuration: %w", ErrEmailToInvalid)
	}

	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	return &Action{
		To:      to,
		Subject: subject,
		Body:    body,
		sender:  sender,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "send_email")

	to, err := template.RenderString(a.To, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipient template: %w", err)
	}

	subject, err := template.RenderString(a.Subject, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject template: %w", err)
	}

	body, err := template.RenderString(a.Body, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body template: %w", err)
	}

	email := Email{
		To:             to,
		Subject:        subject,
		Body:           body,
		IdempotencyKey: executionCtx.IdempotencyKey(executionCtx.CurrentActionID),
	}

	logger.InfoContext(ctx, "Sending email", "to", to, "subject", subject)

	err = a.sender.Send(ctx, email)
	if err != nil {
		// delivery failures are transient from the engine's point of view
		return nil, protocol.Retryablef("failed to send email to %s: %w", to, err)
	}

	return map[string]any{
		"to":      to,
		"subject": subject,
		"sent":    true,
	}, nil
}
