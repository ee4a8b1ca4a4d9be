package persistence

import "errors"

var (
	// ErrWorkflowNotFound is returned when a workflow ID has no record.
	ErrWorkflowNotFound = errors.New("workflow not found")
	// ErrExecutionNotFound is returned when an execution ID has no record.
	ErrExecutionNotFound = errors.New("execution not found")
	// ErrScheduleNotFound is returned when a workflow has no schedule entry.
	ErrScheduleNotFound = errors.New("schedule not found")
)

// IsNotFound reports whether err is any of the repository not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}
