package harness

import "github.com/roach88/erpsync/internal/model"

// TraceEvent is one applied event as recorded by the harness.
type TraceEvent struct {
	Seq        int64          `json:"seq"`
	Invocation string         `json:"invocation"`
	Invoke     string         `json:"invoke"` // "<resource>.<operation>"
	Phase      string         `json:"phase"`
	Failure    *model.Failure `json:"failure,omitempty"`
}

func traceEvent(ev model.Event) TraceEvent {
	return TraceEvent{
		Seq:        ev.Seq,
		Invocation: ev.InvocationID,
		Invoke:     target(ev.Resource, ev.Op),
		Phase:      ev.Phase.String(),
		Failure:    ev.Failure,
	}
}

func target(r model.Resource, op model.OperationName) string {
	return string(r) + "." + string(op)
}

func (e TraceEvent) terminal() bool {
	return e.Phase == model.PhaseSucceeded.String() || e.Phase == model.PhaseFailed.String()
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every applied event in arrival order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
