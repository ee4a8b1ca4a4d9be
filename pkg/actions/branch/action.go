// Package branch provides the conditional-branch workflow action: it
// evaluates a condition tree against the trigger payload and tells the
// coordinator which downstream action IDs stay live. Actions on the untaken
// side are recorded as skipped, never failed.
package branch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
)

// ErrBranchConditionInvalid is returned when the condition config is
// missing or malformed.
var ErrBranchConditionInvalid = errors.New("invalid branch condition")

type Action struct {
	Condition *models.Condition
	Then      []string
	Else      []string
}

func NewAction(config map[string]any) (*Action, error) {
	rawCondition, ok := config["condition"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'condition' in configuration: %w", ErrBranchConditionInvalid)
	}

	condition, err := decodeCondition(rawCondition)
	if err != nil {
		return nil, err
	}

	err = condition.Check()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBranchConditionInvalid, err)
	}

	return &Action{
		Condition: condition,
		Then:      stringSlice(config["then"]),
		Else:      stringSlice(config["else"]),
	}, nil
}

func decodeCondition(raw map[string]any) (*models.Condition, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBranchConditionInvalid, err)
	}

	var condition models.Condition

	err = json.Unmarshal(encoded, &condition)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBranchConditionInvalid, err)
	}

	return &condition, nil
}

func stringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}

	return result
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "conditional_branch")

	matched, warnings := a.Condition.Match(executionCtx.TriggerData)
	for _, warning := range warnings {
		logger.WarnContext(ctx, "Branch condition evaluation warning", "warning", warning)
	}

	next := a.Then
	if !matched {
		next = a.Else
	}

	logger.InfoContext(ctx, "Branch evaluated", "matched", matched, "live_actions", len(next))

	return protocol.BranchResult{
		Matched: matched,
		Next:    next,
	}, nil
}
