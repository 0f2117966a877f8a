package harness

import (
	"github.com/roach88/papertrail/internal/app"
)

// TraceEvent records one flow step: the gesture, where the address bar
// ended up once the client went quiet, and the gateway calls the step
// caused.
//
// Calls are sorted. Searches and loads run concurrently, so arrival order
// is not part of the contract.
type TraceEvent struct {
	Step     int      `json:"step"`
	Gesture  string   `json:"gesture"`
	Location string   `json:"location"`
	Calls    []string `json:"calls,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace holds one event per step, starting with the initial load.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the client state after the last step.
	State app.State `json:"state"`

	// Rendered is State in the CLI text form.
	Rendered string `json:"-"`

	// HistoryLen is the number of address bar entries at the end.
	HistoryLen int `json:"history_len"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace.
func (r *Result) AddStep(gesture, location string, calls []string) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:     len(r.Trace),
		Gesture:  gesture,
		Location: location,
		Calls:    calls,
	})
}

// Calls flattens every recorded gateway call in step order.
func (r *Result) Calls() []string {
	var out []string
	for _, ev := range r.Trace {
		out = append(out, ev.Calls...)
	}
	return out
}
