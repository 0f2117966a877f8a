package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps bounds the URL write-backs a single flow may perform.
// A healthy flow needs at most one or two.
const DefaultMaxSteps = 8

// QuotaEnforcer counts write-back steps in a flow and enforces a limit.
//
// CRITICAL DISTINCTION from CycleDetector:
//   - Cycle detection: catches A → B → A
//   - Step quota: catches A → B → C → ... without repeats
//
// Together they guarantee the URL-sync effect terminates.
//
// Not safe for concurrent use; owned by one page on the event loop.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates it against the limit.
func (q *QuotaEnforcer) Check(flowToken string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			FlowToken: flowToken,
			Steps:     q.current,
			Limit:     q.maxSteps,
		}
	}
	return nil
}

// Reset starts counting a new flow.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a flow exceeds its write-back quota.
type StepsExceededError struct {
	FlowToken string
	Steps     int
	Limit     int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("flow %s exceeded max steps quota: %d steps > %d limit",
		e.FlowToken, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if err is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
