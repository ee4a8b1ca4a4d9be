package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_Evaluate_NilMatchesEverything(t *testing.T) {
	var c *Condition

	assert.True(t, c.Evaluate(map[string]any{"anything": 1}))
	assert.True(t, c.Evaluate(nil))
}

func TestCondition_Evaluate_Leaves(t *testing.T) {
	payload := map[string]any{
		"contact": map[string]any{
			"email":      "ada@example.com",
			"lead_score": float64(42),
			"tags":       []any{"vip", "newsletter"},
		},
		"source": "landing-page",
	}

	tests := []struct {
		name      string
		condition *Condition
		want      bool
	}{
		{
			name:      "eq string match",
			condition: &Condition{Op: OpEquals, Field: "source", Value: "landing-page"},
			want:      true,
		},
		{
			name:      "eq string mismatch",
			condition: &Condition{Op: OpEquals, Field: "source", Value: "import"},
			want:      false,
		},
		{
			name:      "eq numeric coercion int vs float64",
			condition: &Condition{Op: OpEquals, Field: "contact.lead_score", Value: 42},
			want:      true,
		},
		{
			name:      "neq",
			condition: &Condition{Op: OpNotEquals, Field: "source", Value: "import"},
			want:      true,
		},
		{
			name:      "gt true",
			condition: &Condition{Op: OpGreaterThan, Field: "contact.lead_score", Value: 40},
			want:      true,
		},
		{
			name:      "lt false",
			condition: &Condition{Op: OpLessThan, Field: "contact.lead_score", Value: 40},
			want:      false,
		},
		{
			name:      "contains substring",
			condition: &Condition{Op: OpContains, Field: "contact.email", Value: "@example.com"},
			want:      true,
		},
		{
			name:      "contains slice element",
			condition: &Condition{Op: OpContains, Field: "contact.tags", Value: "vip"},
			want:      true,
		},
		{
			name:      "missing field fails closed",
			condition: &Condition{Op: OpEquals, Field: "contact.phone", Value: "123"},
			want:      false,
		},
		{
			name:      "missing nested root fails closed",
			condition: &Condition{Op: OpGreaterThan, Field: "deal.value", Value: 10},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.condition.Evaluate(payload))
		})
	}
}

func TestCondition_Evaluate_Combinators(t *testing.T) {
	payload := map[string]any{"a": float64(1), "b": "x"}

	and := &Condition{Op: OpAnd, Children: []*Condition{
		{Op: OpEquals, Field: "a", Value: 1},
		{Op: OpEquals, Field: "b", Value: "x"},
	}}
	assert.True(t, and.Evaluate(payload))

	or := &Condition{Op: OpOr, Children: []*Condition{
		{Op: OpEquals, Field: "a", Value: 99},
		{Op: OpEquals, Field: "b", Value: "x"},
	}}
	assert.True(t, or.Evaluate(payload))

	not := &Condition{Op: OpNot, Children: []*Condition{
		{Op: OpEquals, Field: "a", Value: 99},
	}}
	assert.True(t, not.Evaluate(payload))

	nested := &Condition{Op: OpAnd, Children: []*Condition{
		or,
		{Op: OpNot, Children: []*Condition{{Op: OpEquals, Field: "b", Value: "y"}}},
	}}
	assert.True(t, nested.Evaluate(payload))
}

func TestCondition_Match_TypeMismatchWarnsAndFailsClosed(t *testing.T) {
	payload := map[string]any{"name": "ada"}

	c := &Condition{Op: OpGreaterThan, Field: "name", Value: 10}

	matched, warnings := c.Match(payload)

	assert.False(t, matched)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "needs numeric operands")
}

func TestCondition_Evaluate_Changed(t *testing.T) {
	payload := map[string]any{
		"old": map[string]any{"stage_id": "lead"},
		"new": map[string]any{"stage_id": "customer"},
	}

	changed := &Condition{Op: OpChanged, Field: "stage_id"}
	assert.True(t, changed.Evaluate(payload))

	pinned := &Condition{Op: OpChanged, Field: "stage_id", From: "lead", To: "customer"}
	assert.True(t, pinned.Evaluate(payload))

	wrongTo := &Condition{Op: OpChanged, Field: "stage_id", From: "lead", To: "churned"}
	assert.False(t, wrongTo.Evaluate(payload))

	unchanged := &Condition{Op: OpChanged, Field: "stage_id"}
	assert.False(t, unchanged.Evaluate(map[string]any{
		"old": map[string]any{"stage_id": "lead"},
		"new": map[string]any{"stage_id": "lead"},
	}))

	// Payload without old/new snapshots fails closed.
	assert.False(t, changed.Evaluate(map[string]any{"stage_id": "customer"}))
}

func TestCondition_Evaluate_CompositeValues(t *testing.T) {
	// Maps and slices in the payload must never panic the evaluator.
	changed := &Condition{Op: OpChanged, Field: "address"}
	assert.True(t, changed.Evaluate(map[string]any{
		"old": map[string]any{"address": map[string]any{"city": "Lisbon"}},
		"new": map[string]any{"address": map[string]any{"city": "Porto"}},
	}))
	assert.False(t, changed.Evaluate(map[string]any{
		"old": map[string]any{"address": map[string]any{"city": "Lisbon"}},
		"new": map[string]any{"address": map[string]any{"city": "Lisbon"}},
	}))

	eqSlice := &Condition{Op: OpEquals, Field: "tags", Value: []any{"vip"}}
	payload := map[string]any{"tags": []any{"vip"}}
	assert.True(t, eqSlice.Evaluate(payload))
	assert.False(t, eqSlice.Evaluate(map[string]any{"tags": []any{"vip", "newsletter"}}))

	neqMap := &Condition{Op: OpNotEquals, Field: "meta", Value: map[string]any{"k": "v"}}
	assert.False(t, neqMap.Evaluate(map[string]any{"meta": map[string]any{"k": "v"}}))
}

func TestCondition_Check(t *testing.T) {
	valid := &Condition{Op: OpAnd, Children: []*Condition{
		{Op: OpEquals, Field: "a", Value: 1},
		{Op: OpNot, Children: []*Condition{{Op: OpContains, Field: "b", Value: "x"}}},
	}}
	require.NoError(t, valid.Check())

	tests := []struct {
		name      string
		condition *Condition
	}{
		{"combinator without children", &Condition{Op: OpAnd}},
		{"not with two children", &Condition{Op: OpNot, Children: []*Condition{
			{Op: OpEquals, Field: "a"}, {Op: OpEquals, Field: "b"},
		}}},
		{"comparison without field", &Condition{Op: OpEquals, Value: 1}},
		{"comparison with children", &Condition{Op: OpEquals, Field: "a", Children: []*Condition{
			{Op: OpEquals, Field: "b"},
		}}},
		{"unknown op", &Condition{Op: "matches"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Check()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCondition)
		})
	}
}
