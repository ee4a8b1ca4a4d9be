package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ConditionOp is a node kind in a condition tree: a combinator over child
// conditions or a leaf comparison against an event payload field.
type ConditionOp string

const (
	OpAnd ConditionOp = "and"
	OpOr  ConditionOp = "or"
	OpNot ConditionOp = "not"

	OpEquals      ConditionOp = "eq"
	OpNotEquals   ConditionOp = "neq"
	OpContains    ConditionOp = "contains"
	OpGreaterThan ConditionOp = "gt"
	OpLessThan    ConditionOp = "lt"
	OpChanged     ConditionOp = "changed"
)

var ErrInvalidCondition = errors.New("invalid condition")

// Condition is a tree of AND/OR/NOT combinators over leaf comparisons.
// Evaluation is pure and fail-closed: unknown fields, malformed payloads and
// type mismatches make the containing comparison false, never an error, so a
// partially-populated event cannot crash trigger matching. Misconfigurations
// worth operator attention are reported as warnings, not failures.
type Condition struct {
	Op       ConditionOp  `json:"op"`
	Field    string       `json:"field,omitempty"`
	Value    any          `json:"value,omitempty"`
	From     any          `json:"from,omitempty"`
	To       any          `json:"to,omitempty"`
	Children []*Condition `json:"children,omitempty"`
}

// Check validates the tree shape. It is the registration-time gate for the
// configuration-error taxonomy; Evaluate assumes a checked tree but still
// fails closed on anything unexpected.
func (c *Condition) Check() error {
	if c == nil {
		return nil
	}

	switch c.Op {
	case OpAnd, OpOr:
		if len(c.Children) == 0 {
			return fmt.Errorf("%w: %q requires at least one child", ErrInvalidCondition, c.Op)
		}
	case OpNot:
		if len(c.Children) != 1 {
			return fmt.Errorf("%w: %q requires exactly one child", ErrInvalidCondition, c.Op)
		}
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan:
		if c.Field == "" {
			return fmt.Errorf("%w: %q requires a field", ErrInvalidCondition, c.Op)
		}

		if len(c.Children) != 0 {
			return fmt.Errorf("%w: comparison %q cannot have children", ErrInvalidCondition, c.Op)
		}
	case OpChanged:
		if c.Field == "" {
			return fmt.Errorf("%w: %q requires a field", ErrInvalidCondition, c.Op)
		}
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidCondition, c.Op)
	}

	for _, child := range c.Children {
		if err := child.Check(); err != nil {
			return err
		}
	}

	return nil
}

// Evaluate tests the tree against an event payload. A nil condition matches
// everything.
func (c *Condition) Evaluate(payload map[string]any) bool {
	matched, _ := c.Match(payload)

	return matched
}

// Match is Evaluate plus the list of configuration warnings encountered
// (type mismatches, unknown ops). Callers log the warnings; the evaluation
// itself stays pure.
func (c *Condition) Match(payload map[string]any) (bool, []string) {
	if c == nil {
		return true, nil
	}

	var warnings []string

	matched := c.eval(payload, &warnings)

	return matched, warnings
}

func (c *Condition) eval(payload map[string]any, warnings *[]string) bool {
	switch c.Op {
	case OpAnd:
		for _, child := range c.Children {
			if !child.eval(payload, warnings) {
				return false
			}
		}

		return len(c.Children) > 0
	case OpOr:
		for _, child := range c.Children {
			if child.eval(payload, warnings) {
				return true
			}
		}

		return false
	case OpNot:
		if len(c.Children) != 1 {
			return false
		}

		return !c.Children[0].eval(payload, warnings)
	case OpEquals:
		value, ok := lookupField(payload, c.Field)
		if !ok {
			return false
		}

		return looselyEqual(value, c.Value)
	case OpNotEquals:
		value, ok := lookupField(payload, c.Field)
		if !ok {
			return false
		}

		return !looselyEqual(value, c.Value)
	case OpContains:
		value, ok := lookupField(payload, c.Field)
		if !ok {
			return false
		}

		return contains(value, c.Value, warnings, c.Field)
	case OpGreaterThan, OpLessThan:
		value, ok := lookupField(payload, c.Field)
		if !ok {
			return false
		}

		return numericCompare(c.Op, value, c.Value, warnings, c.Field)
	case OpChanged:
		return c.evalChanged(payload)
	default:
		*warnings = append(*warnings, fmt.Sprintf("unknown condition op %q", c.Op))

		return false
	}
}

// evalChanged matches update-style events whose payload carries "old" and
// "new" entity snapshots. The field must differ between the two; From and To
// additionally pin the expected before/after values when set.
func (c *Condition) evalChanged(payload map[string]any) bool {
	oldRoot, okOld := payload["old"].(map[string]any)
	newRoot, okNew := payload["new"].(map[string]any)

	if !okOld || !okNew {
		return false
	}

	oldValue, _ := lookupField(oldRoot, c.Field)
	newValue, _ := lookupField(newRoot, c.Field)

	if looselyEqual(oldValue, newValue) {
		return false
	}

	if c.From != nil && !looselyEqual(oldValue, c.From) {
		return false
	}

	if c.To != nil && !looselyEqual(newValue, c.To) {
		return false
	}

	return true
}

// lookupField resolves a dot path ("contact.email") into nested maps.
func lookupField(payload map[string]any, field string) (any, bool) {
	if payload == nil || field == "" {
		return nil, false
	}

	parts := strings.Split(field, ".")

	var current any = payload

	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// looselyEqual compares primitives, coercing only across numeric kinds so a
// JSON-decoded float64 still matches an int configured in a condition.
// Composite values (maps, slices) fall back to a deep comparison; `==` on
// them would panic, and evaluation must never throw.
func looselyEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}

		return false
	}

	return reflect.DeepEqual(a, b)
}

func contains(value, needle any, warnings *[]string, field string) bool {
	switch v := value.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("field %q: contains needs a string value", field))

			return false
		}

		return strings.Contains(v, s)
	case []any:
		for _, item := range v {
			if looselyEqual(item, needle) {
				return true
			}
		}

		return false
	default:
		*warnings = append(*warnings, fmt.Sprintf("field %q: contains not applicable to %T", field, value))

		return false
	}
}

func numericCompare(op ConditionOp, value, bound any, warnings *[]string, field string) bool {
	left, lok := toFloat(value)
	right, rok := toFloat(bound)

	if !lok || !rok {
		*warnings = append(*warnings, fmt.Sprintf("field %q: %s needs numeric operands, got %T and %T", field, op, value, bound))

		return false
	}

	if op == OpGreaterThan {
		return left > right
	}

	return left < right
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
