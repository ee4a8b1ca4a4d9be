package protocol

import (
	"errors"
	"fmt"
	"time"
)

// RetryableError marks a failure as transient. The coordinator only honors
// an action's RETRY policy when the handler classified the failure this way;
// everything else is terminal for that attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as transient.
func Retryable(err error) error {
	if err == nil {
		return nil
	}

	return &RetryableError{Err: err}
}

// Retryablef is Retryable over a formatted error.
func Retryablef(format string, args ...any) error {
	return &RetryableError{Err: fmt.Errorf(format, args...)}
}

// IsRetryable reports whether any error in the chain is a RetryableError.
func IsRetryable(err error) bool {
	var target *RetryableError

	return errors.As(err, &target)
}

// SuspendError is returned by non-blocking waits (the delay action): the
// handler did not fail, it asks the coordinator to park the execution and
// re-enter the chain after Duration via a timer continuation. No worker is
// held while the execution waits.
type SuspendError struct {
	Duration time.Duration
}

func (e *SuspendError) Error() string {
	return fmt.Sprintf("execution suspended for %s", e.Duration)
}

// Suspend builds the suspension signal for the given wait.
func Suspend(d time.Duration) error {
	return &SuspendError{Duration: d}
}

// AsSuspend extracts a suspension signal from an action error, if present.
func AsSuspend(err error) (*SuspendError, bool) {
	var target *SuspendError

	ok := errors.As(err, &target)

	return target, ok
}
