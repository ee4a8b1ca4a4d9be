package sendemail

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
)

type recordingSender struct {
	sent []Email
	err  error
}

func (s *recordingSender) Send(_ context.Context, email Email) error {
	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, email)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func executionContext() models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID:     "exec-1",
		WorkflowID:      "wf-1",
		TenantID:        "tenant-1",
		CurrentActionID: "act-1",
		TriggerData: map[string]any{
			"contact": map[string]any{
				"email": "ada@example.com",
				"name":  "Ada",
			},
		},
	}
}

func TestNewAction_MissingRecipient(t *testing.T) {
	_, err := NewAction(map[string]any{"subject": "hi"}, &recordingSender{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmailToInvalid)
}

func TestAction_Execute_RendersTemplates(t *testing.T) {
	sender := &recordingSender{}
	action, err := NewAction(map[string]any{
		"to":      "{{.trigger_data.contact.email}}",
		"subject": "Welcome {{.trigger_data.contact.name}}",
		"body":    "Hello!",
	}, sender)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), executionContext(), testLogger())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)
	assert.Equal(t, "Welcome Ada", sender.sent[0].Subject)
	assert.Equal(t, "exec-1:act-1", sender.sent[0].IdempotencyKey)

	resultMap := result.(map[string]any)
	assert.Equal(t, true, resultMap["sent"])
}

func TestAction_Execute_SendFailureIsRetryable(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp unavailable")}
	action, err := NewAction(map[string]any{
		"to":      "ada@example.com",
		"subject": "hi",
	}, sender)
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), executionContext(), testLogger())
	require.Error(t, err)
	assert.True(t, protocol.IsRetryable(err))
}

func TestActionFactory(t *testing.T) {
	factory := NewActionFactory(&recordingSender{})
	assert.Equal(t, "send_email", factory.ID())

	action, err := factory.Create(map[string]any{"to": "a@b.c", "subject": "s"})
	require.NoError(t, err)
	assert.NotNil(t, action)
}
