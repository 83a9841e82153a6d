package ops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/transport"
)

// Notify selects the notifications raised by an operation.
type Notify struct {
	// Success raises a success notification. The text is SuccessText when
	// set, otherwise the server's "message" field; nothing is raised when
	// both are empty.
	Success     bool
	SuccessText string

	// Failure raises an error notification with the server's message, or
	// FailureText when the server sent none, or the failure message.
	// FixedFailureText always uses FailureText.
	Failure          bool
	FailureText      string
	FixedFailureText bool
}

// Spec describes one operation of one resource.
type Spec[In, Out any] struct {
	Resource model.Resource
	Name     model.OperationName

	// Check rejects invalid input before the transport call. Optional.
	Check func(In) error

	// Request builds the single transport request of an invocation.
	Request func(In) transport.Request

	// Decode turns a successful response into the emitted value.
	Decode func(In, transport.Response) (Out, error)

	// Commit runs after a successful decode and before the Succeeded event
	// is emitted. A Commit error fails the invocation. Optional.
	Commit func(context.Context, Out) error

	Notify Notify
}

// Operation is an invocable server operation.
type Operation[In, Out any] struct {
	rt   *Runtime
	spec Spec[In, Out]
}

// New binds spec to a runtime.
func New[In, Out any](rt *Runtime, spec Spec[In, Out]) *Operation[In, Out] {
	return &Operation[In, Out]{rt: rt, spec: spec}
}

// Resource returns the resource the operation belongs to.
func (o *Operation[In, Out]) Resource() model.Resource {
	return o.spec.Resource
}

// Name returns the operation name.
func (o *Operation[In, Out]) Name() model.OperationName {
	return o.spec.Name
}

// Invoke runs one invocation: it emits Started, performs exactly one
// transport call, then emits exactly one of Succeeded or Failed.
//
// The returned error is a *model.Failure for every failure reported to the
// store. Any other error means the engine was not running and no terminal
// event could be delivered.
//
// ctx bounds the transport call. Cancelling it fails the invocation; it
// never leaves the operation Pending.
func (o *Operation[In, Out]) Invoke(ctx context.Context, in In) (Out, error) {
	var zero Out
	start := time.Now()
	id := o.rt.ids.Generate()
	logger := o.rt.logger.With(
		"invocation", id,
		"resource", o.spec.Resource,
		"op", o.spec.Name,
	)

	lc := newLifecycle(func(state string) {
		logger.Debug("invocation state", "state", state)
	})

	if err := lc.fire(ctx, EventStart); err != nil {
		return zero, fmt.Errorf("starting invocation: %w", err)
	}
	if err := o.dispatch(ctx, model.Started(id, o.spec.Resource, o.spec.Name)); err != nil {
		return zero, err
	}
	o.rt.metrics.started(o.spec.Resource, o.spec.Name)

	fail := func(f *model.Failure, serverMessage string) (Out, error) {
		if err := lc.fire(ctx, EventFail); err != nil {
			return zero, fmt.Errorf("failing invocation: %w", err)
		}
		o.rt.metrics.finished(o.spec.Resource, o.spec.Name, StateFailed, time.Since(start))
		logger.Debug("invocation failed", "error", f)
		if err := o.dispatch(ctx, model.Failed(id, o.spec.Resource, o.spec.Name, f)); err != nil {
			return zero, err
		}
		o.notifyFailure(f, serverMessage)
		return zero, f
	}

	if o.spec.Check != nil {
		if err := o.spec.Check(in); err != nil {
			return fail(model.AsFailure(toFailure(err), model.CodeInvalidInput), "")
		}
	}

	resp := o.rt.transport.Do(ctx, o.spec.Request(in))
	if !resp.OK {
		return fail(resp.Failure(), resp.ServerMessage())
	}

	out, err := o.spec.Decode(in, resp)
	if err != nil {
		return fail(&model.Failure{
			Message: fmt.Sprintf("decoding %s response: %v", o.spec.Name, err),
			Code:    model.CodeMalformedResponse,
			Status:  resp.Status,
		}, "")
	}

	if o.spec.Commit != nil {
		if err := o.spec.Commit(ctx, out); err != nil {
			return fail(model.AsFailure(err, model.CodeSessionStore), "")
		}
	}

	if err := lc.fire(ctx, EventSucceed); err != nil {
		return zero, fmt.Errorf("completing invocation: %w", err)
	}
	o.rt.metrics.finished(o.spec.Resource, o.spec.Name, StateSucceeded, time.Since(start))
	if err := o.dispatch(ctx, model.Succeeded(id, o.spec.Resource, o.spec.Name, out)); err != nil {
		return zero, err
	}
	o.notifySuccess(resp.ServerMessage())
	return out, nil
}

// dispatch delivers ev. A caller context that ends while waiting is not an
// error: the event is already queued and will be applied.
func (o *Operation[In, Out]) dispatch(ctx context.Context, ev model.Event) error {
	err := o.rt.dispatcher.Dispatch(ctx, ev)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return fmt.Errorf("dispatching %s %s: %w", ev.Op, ev.Phase, err)
}

func (o *Operation[In, Out]) notifySuccess(serverMessage string) {
	n := o.spec.Notify
	if !n.Success {
		return
	}
	msg := n.SuccessText
	if msg == "" {
		msg = serverMessage
	}
	if msg == "" {
		return
	}
	o.rt.notifier.Notify(Notification{
		Level:    LevelSuccess,
		Resource: o.spec.Resource,
		Op:       o.spec.Name,
		Message:  msg,
	})
}

func (o *Operation[In, Out]) notifyFailure(f *model.Failure, serverMessage string) {
	n := o.spec.Notify
	if !n.Failure {
		return
	}
	msg := serverMessage
	if msg == "" || (n.FixedFailureText && n.FailureText != "") {
		msg = n.FailureText
	}
	if msg == "" {
		msg = f.Message
	}
	o.rt.notifier.Notify(Notification{
		Level:    LevelError,
		Resource: o.spec.Resource,
		Op:       o.spec.Name,
		Message:  msg,
	})
}

func toFailure(err error) error {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Failure()
	}
	return err
}
