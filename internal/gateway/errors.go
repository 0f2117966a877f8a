package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/papertrail/internal/model"
)

// Error is a failed gateway call.
//
// Code is NETWORK_FAILURE or NOT_FOUND; cancellation is reported by
// wrapping the context error instead, so Classify can tell it apart.
type Error struct {
	Code   model.ErrorKind
	Op     string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Code, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Code, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports that op found no record for id.
func NewNotFoundError(op string, id int64) *Error {
	return &Error{
		Code: model.ErrNotFound,
		Op:   op,
		Err:  fmt.Errorf("id %d not found", id),
	}
}

// IsNotFound returns true if err is a NOT_FOUND gateway error.
func IsNotFound(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code == model.ErrNotFound
	}
	return false
}

// Classify maps any error returned by a Gateway onto the error taxonomy.
// A nil error classifies as the empty kind.
func Classify(err error) model.ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return model.ErrCancelled
	case IsNotFound(err):
		return model.ErrNotFound
	default:
		return model.ErrNetworkFailure
	}
}

// FailureOf converts err into the display record stored in page state.
// Returns nil for nil errors.
func FailureOf(err error) *model.Failure {
	if err == nil {
		return nil
	}
	return &model.Failure{Kind: Classify(err), Message: err.Error()}
}
