// Package services provides the business operations behind the workflow API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/relay/pkg/persistence"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// ErrWorkflowNotFound is returned when a workflow does not exist.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrExecutionNotFound is returned when an execution does not exist.
	ErrExecutionNotFound = persistence.ErrExecutionNotFound

	// Validation errors (400 Bad Request).
	ErrWorkflowNil      = errors.New("workflow cannot be nil")
	ErrWorkflowInvalid  = errors.New("workflow failed validation")
	ErrConditionInvalid = errors.New("workflow conditions are invalid")
	ErrActionsRequired  = errors.New("workflow must have at least one action")
	ErrActionInvalid    = errors.New("action configuration is invalid")
	ErrTriggerInvalid   = errors.New("trigger configuration is invalid")
	ErrTenantMismatch   = errors.New("workflow belongs to another tenant")

	// Business logic conflicts (409 Conflict).
	ErrWorkflowArchived = errors.New("cannot modify archived workflow")
)

// ValidationError carries the offending field or action alongside the
// sentinel, so the API layer can report what to fix.
type ValidationError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps a sentinel with operation context.
func NewValidationError(op, detail string, err error) *ValidationError {
	return &ValidationError{Op: op, Detail: detail, Err: err}
}

// IsValidationError reports whether err should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowInvalid) ||
		errors.Is(err, ErrConditionInvalid) ||
		errors.Is(err, ErrActionsRequired) ||
		errors.Is(err, ErrActionInvalid) ||
		errors.Is(err, ErrTriggerInvalid) ||
		errors.Is(err, ErrTenantMismatch)
}

// IsConflictError reports whether err should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowArchived)
}
