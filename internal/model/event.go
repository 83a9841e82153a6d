package model

// Phase is one of the three phases of an operation invocation.
type Phase int

const (
	PhaseStarted Phase = iota + 1
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "Started"
	case PhaseSucceeded:
		return "Succeeded"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Event is a lifecycle notification for one operation invocation.
//
// Every invocation produces exactly one Started event followed by exactly
// one Succeeded or Failed event. Value is set on Succeeded only; Failure on
// Failed only.
type Event struct {
	Seq          int64         // Arrival order, stamped by the engine
	InvocationID string        // Correlates the phases of one invocation
	Resource     Resource      // Target store
	Op           OperationName // Operation that produced the event
	Phase        Phase
	Value        any
	Failure      *Failure
}

// Started builds the Started event of an invocation.
func Started(id string, r Resource, op OperationName) Event {
	return Event{InvocationID: id, Resource: r, Op: op, Phase: PhaseStarted}
}

// Succeeded builds the Succeeded event of an invocation.
func Succeeded(id string, r Resource, op OperationName, value any) Event {
	return Event{InvocationID: id, Resource: r, Op: op, Phase: PhaseSucceeded, Value: value}
}

// Failed builds the Failed event of an invocation.
func Failed(id string, r Resource, op OperationName, f *Failure) Event {
	return Event{InvocationID: id, Resource: r, Op: op, Phase: PhaseFailed, Failure: f}
}
