package delay

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
)

func TestNewAction(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		expected  time.Duration
		expectErr bool
	}{
		{
			name:     "duration string",
			config:   map[string]any{"duration": "5m"},
			expected: 5 * time.Minute,
		},
		{
			name:     "seconds number",
			config:   map[string]any{"seconds": float64(90)},
			expected: 90 * time.Second,
		},
		{
			name:      "missing config",
			config:    map[string]any{},
			expectErr: true,
		},
		{
			name:      "malformed duration",
			config:    map[string]any{"duration": "soon"},
			expectErr: true,
		},
		{
			name:      "negative duration",
			config:    map[string]any{"duration": "-1m"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := NewAction(tt.config)

			if tt.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrDurationInvalid)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, action.Duration)
		})
	}
}

func TestAction_Execute_ReturnsSuspend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	action, err := NewAction(map[string]any{"duration": "10m"})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.ExecutionContext{}, logger)
	assert.Nil(t, result)
	require.Error(t, err)

	suspend, ok := protocol.AsSuspend(err)
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, suspend.Duration)
}

func TestActionFactory(t *testing.T) {
	factory := NewActionFactory()
	assert.Equal(t, "delay", factory.ID())
}
