// Package template renders action config strings against the execution
// context, so configs can reference trigger payload fields and prior step
// outputs.
package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/relay/pkg/models"
)

// RenderWithContext exposes the execution context under stable top-level
// keys: {{.trigger_data.contact.email}}, {{.step_results.lookup.id}}.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"trigger_data": executionCtx.TriggerData,
		"step_results": executionCtx.StepResults,
		"metadata":     executionCtx.Metadata,
		"execution": map[string]any{
			"id":          executionCtx.ExecutionID,
			"workflow_id": executionCtx.WorkflowID,
			"tenant_id":   executionCtx.TenantID,
		},
	}

	return Render(input, data)
}

// Render executes input as a text/template. When the rendered output looks
// like JSON it is decoded, so templated bodies come back structured.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template %q: %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(result), &decoded); err == nil {
			return decoded, nil
		}
	}

	return result, nil
}

// RenderString is Render for callers that need a plain string back.
func RenderString(templateStr string, executionCtx *models.ExecutionContext) (string, error) {
	rendered, err := RenderWithContext(templateStr, executionCtx)
	if err != nil {
		return "", err
	}

	switch v := rendered.(type) {
	case string:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}

		return string(encoded), nil
	}
}
