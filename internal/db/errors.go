package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	ReasonTimeout         = "timeout"
	ReasonCanceled        = "canceled"
	ReasonExecutionFailed = "execution-failed"
)

// ErrStoreMissing is returned by Open when the store file does not exist.
var ErrStoreMissing = errors.New("store file not found")

// ValidationError reports SQL rejected before it reached the store.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "query rejected: " + e.Reason
}

// ExecutionError reports a validated statement the store could not run.
// Message carries the engine's own text.
type ExecutionError struct {
	Reason  string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query failed (%s): %s", e.Reason, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// newExecutionError classifies err using the context the query ran under.
func newExecutionError(ctx context.Context, err error, timeout time.Duration) *ExecutionError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return &ExecutionError{
			Reason:  ReasonTimeout,
			Message: fmt.Sprintf("query did not finish within %s", timeout),
			Err:     err,
		}
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return &ExecutionError{Reason: ReasonCanceled, Message: "query was canceled", Err: err}
	}

	return &ExecutionError{Reason: ReasonExecutionFailed, Message: engineMessage(err), Err: err}
}

// engineMessage unwraps err down to the driver's error text.
func engineMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
