package ops

import (
	"context"

	"github.com/looplab/fsm"
)

// Lifecycle states of a single invocation.
const (
	StateIdle      = "idle"
	StatePending   = "pending"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Lifecycle events of a single invocation.
const (
	EventStart   = "start"
	EventSucceed = "succeed"
	EventFail    = "fail"
)

// lifecycle tracks one invocation through idle -> pending -> terminal.
// Terminal states have no outgoing transitions, so a second terminal event
// for the same invocation is rejected.
type lifecycle struct {
	fsm *fsm.FSM
}

func newLifecycle(onEnter func(state string)) *lifecycle {
	callbacks := fsm.Callbacks{}
	if onEnter != nil {
		callbacks["enter_state"] = func(_ context.Context, e *fsm.Event) {
			onEnter(e.Dst)
		}
	}
	return &lifecycle{
		fsm: fsm.NewFSM(
			StateIdle,
			fsm.Events{
				{Name: EventStart, Src: []string{StateIdle}, Dst: StatePending},
				{Name: EventSucceed, Src: []string{StatePending}, Dst: StateSucceeded},
				{Name: EventFail, Src: []string{StatePending}, Dst: StateFailed},
			},
			callbacks,
		),
	}
}

// fire ignores cancellation of ctx: an invocation that has started must
// still reach a terminal state.
func (l *lifecycle) fire(ctx context.Context, event string) error {
	return l.fsm.Event(context.WithoutCancel(ctx), event)
}

func (l *lifecycle) current() string {
	return l.fsm.Current()
}
