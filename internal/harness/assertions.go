package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s -> %s\n", event.Step, event.Gesture, event.Location)
		for _, call := range event.Calls {
			fmt.Fprintf(&buf, "        %s\n", call)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertLocation:
		return assertLocation(result, a)
	case AssertHistoryLen:
		return assertHistoryLen(result, a)
	case AssertCallCount:
		return assertCallCount(result, a)
	case AssertCallOrder:
		return assertCallOrder(result, a)
	case AssertStateContains:
		return assertStateContains(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertLocation(result *Result, a Assertion) error {
	if result.State.Location == a.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertLocation,
		Expected: a.Value,
		Actual:   result.State.Location,
		Trace:    result.Trace,
	}
}

func assertHistoryLen(result *Result, a Assertion) error {
	if result.HistoryLen == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertHistoryLen,
		Expected: fmt.Sprintf("%d entries", a.Count),
		Actual:   fmt.Sprintf("%d entries", result.HistoryLen),
		Trace:    result.Trace,
	}
}

// callOp returns the operation name of a recorded call.
func callOp(call string) string {
	op, _, _ := strings.Cut(call, " ")
	return op
}

// assertCallCount checks that the operation was called exactly Count times.
func assertCallCount(result *Result, a Assertion) error {
	count := 0
	for _, call := range result.Calls() {
		if callOp(call) == a.Op {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallCount,
		Expected: fmt.Sprintf("%s called %d times", a.Op, a.Count),
		Actual:   fmt.Sprintf("%s called %d times", a.Op, count),
		Trace:    result.Trace,
	}
}

// assertCallOrder checks that each operation was first called after the
// previous one. Calls need not be consecutive.
func assertCallOrder(result *Result, a Assertion) error {
	// Step 1: Find first position of each expected operation
	positions := make(map[string]int)
	for i, call := range result.Calls() {
		op := callOp(call)
		if positions[op] == 0 {
			positions[op] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all operations found
	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("all operations called: %v", a.Ops),
				Actual:   fmt.Sprintf("missing operation: %s", op),
				Trace:    result.Trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("operations in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: result.Trace,
			}
		}
	}

	return nil
}

func assertStateContains(result *Result, a Assertion) error {
	if strings.Contains(result.Rendered, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertStateContains,
		Expected: fmt.Sprintf("state containing %q", a.Text),
		Actual:   result.Rendered,
		Trace:    result.Trace,
	}
}
