// Package webhookcall provides the workflow action that calls an external
// HTTP endpoint. Transport failures and 5xx responses are reported as
// retryable so the coordinator's retry policy applies; 4xx responses are
// terminal.
package webhookcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/relay/pkg/models"
	"github.com/dukex/relay/pkg/protocol"
	"github.com/dukex/relay/pkg/template"
)

const defaultTimeoutSeconds = 30

var (
	// ErrWebhookURLInvalid is returned when the url config is missing.
	ErrWebhookURLInvalid = errors.New("invalid webhook url")
	// ErrWebhookServerError is returned for 5xx responses.
	ErrWebhookServerError = errors.New("server error during webhook call")
	// ErrWebhookClientError is returned for 4xx responses.
	ErrWebhookClientError = errors.New("client error during webhook call")
)

type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration

	client *http.Client
}

func NewAction(config map[string]any) (*Action, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration: %w", ErrWebhookURLInvalid)
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for k, v := range headersMap {
				if strVal, ok := v.(string); ok {
					headers[k] = strVal
				}
			}
		}
	}

	timeout := defaultTimeoutSeconds * time.Second
	if raw, ok := config["timeout_seconds"].(float64); ok && raw > 0 {
		timeout = time.Duration(raw) * time.Second
	}

	return &Action{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "webhook_call")

	req, err := a.buildRequest(ctx, executionCtx)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Calling webhook", "method", a.Method, "url", req.URL.String())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, protocol.Retryablef("webhook request failed: %w", err)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) buildRequest(ctx context.Context, executionCtx models.ExecutionContext) (*http.Request, error) {
	urlResult, err := template.RenderString(a.URL, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	bodyReader, err := a.buildRequestBody(executionCtx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, urlResult, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		headerValue, err := template.RenderString(value, &executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render header %q template: %w", key, err)
		}

		req.Header.Set(key, headerValue)
	}

	if req.Header.Get("Content-Type") == "" && a.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	// same key on every retry attempt: receivers can dedupe
	req.Header.Set("X-Idempotency-Key", executionCtx.IdempotencyKey(executionCtx.CurrentActionID))

	return req, nil
}

func (a *Action) buildRequestBody(executionCtx models.ExecutionContext) (io.Reader, error) {
	if a.Body == "" {
		return strings.NewReader(""), nil
	}

	body, err := template.RenderWithContext(a.Body, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body template: %w", err)
	}

	var bodyBytes []byte
	if str, ok := body.(string); ok {
		bodyBytes = []byte(str)
	} else {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	return strings.NewReader(string(bodyBytes)), nil
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, protocol.Retryablef("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, protocol.Retryablef("webhook returned status %d: %w", resp.StatusCode, ErrWebhookServerError)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("webhook returned status %d: %w", resp.StatusCode, ErrWebhookClientError)
	}

	var body any

	err = json.Unmarshal(bodyBytes, &body)
	if err != nil {
		body = string(bodyBytes)

		logger.WarnContext(ctx, "Failed to parse response as JSON, returning as string", "error", err)
	}

	logger.InfoContext(ctx, "Webhook call completed", "status_code", resp.StatusCode)

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
	}, nil
}
