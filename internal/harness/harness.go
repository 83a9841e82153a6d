package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/registry"
	"github.com/roach88/erpsync/internal/testutil"
	"github.com/roach88/erpsync/internal/validate"
)

// waitTimeout bounds every wait on the engine or the backend.
const waitTimeout = 5 * time.Second

// Harness executes one scenario.
type Harness struct {
	reg     *registry.Registry
	backend *testutil.ScriptedTransport
	tokens  *testutil.MemoryTokens
	notes   *ops.Recorder
	holds   map[string]chan struct{}
	logger  *slog.Logger

	mu    sync.Mutex
	trace []TraceEvent

	wg       sync.WaitGroup
	asyncMu  sync.Mutex
	asyncErr []string
}

// Run executes a scenario against a fresh registry and returns the result.
// The error is non-nil only when the scenario could not be executed.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := h.reg.Start(ctx)

	result := NewResult()
	runErr := h.execute(ctx, scenario, result)

	// Open every hold so no invocation outlives the run.
	for _, ch := range h.holds {
		closeOnce(ch)
	}
	h.wg.Wait()
	if err := stop(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("stopping engine: %w", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	for _, msg := range h.asyncErr {
		result.AddError(msg)
	}
	result.Trace = h.snapshotTrace()
	for _, msg := range h.evaluate(result.Trace, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	h := &Harness{
		tokens: &testutil.MemoryTokens{},
		notes:  &ops.Recorder{},
		holds:  map[string]chan struct{}{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	replies := make([]testutil.Reply, 0, len(scenario.Replies))
	for _, r := range scenario.Replies {
		reply := testutil.Reply{
			Method:  r.Method,
			Path:    r.Path,
			Status:  r.Status,
			Body:    r.Body,
			Message: r.Message,
		}
		if r.Hold != "" {
			ch, ok := h.holds[r.Hold]
			if !ok {
				ch = make(chan struct{})
				h.holds[r.Hold] = ch
			}
			reply.Hold = ch
		}
		replies = append(replies, reply)
	}
	h.backend = testutil.NewScriptedTransport(replies...)

	v, err := validate.New()
	if err != nil {
		return nil, fmt.Errorf("loading schemas: %w", err)
	}

	h.reg, err = registry.New(registry.Config{
		Transport: h.backend,
		Tokens:    h.tokens,
		Validator: v,
		Notifier:  h.notes,
		IDs:       testutil.NewSequentialIDs("inv"),
		Logger:    h.logger,
		Observer:  h.record,
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Harness) record(ev model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trace = append(h.trace, traceEvent(ev))
}

func (h *Harness) snapshotTrace() []TraceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TraceEvent{}, h.trace...)
}

func (h *Harness) terminalCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, ev := range h.trace {
		if ev.terminal() {
			n++
		}
	}
	return n
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	for i, step := range scenario.Setup {
		if _, err := h.invoke(ctx, step); err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
		h.logger.Info("setup step completed", "step", i, "invoke", step.Invoke)
	}

	for i, step := range scenario.Flow {
		switch {
		case step.Release != "":
			if err := h.release(step.Release); err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
		case step.Async:
			if err := h.launch(ctx, i, step); err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
		default:
			out, err := h.invoke(ctx, step)
			if msg, ok := checkExpect(i, step, out, err); !ok {
				result.AddError(msg)
			}
		}
		h.logger.Info("flow step completed", "step", i, "invoke", step.Invoke, "release", step.Release)
	}
	return nil
}

// launch starts an async step and returns once its request is parked at the
// backend.
func (h *Harness) launch(ctx context.Context, i int, step FlowStep) error {
	before := len(h.backend.Requests())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		out, err := h.invoke(ctx, step)
		if msg, ok := checkExpect(i, step, out, err); !ok {
			h.asyncMu.Lock()
			h.asyncErr = append(h.asyncErr, msg)
			h.asyncMu.Unlock()
		}
	}()

	return waitUntil(func() bool {
		return len(h.backend.Requests()) > before
	}, fmt.Sprintf("%s to reach the backend", step.Invoke))
}

// release opens a hold and waits for the released invocation to finish.
func (h *Harness) release(name string) error {
	ch, ok := h.holds[name]
	if !ok {
		return fmt.Errorf("unknown hold %q", name)
	}
	before := h.terminalCount()
	closeOnce(ch)
	return waitUntil(func() bool {
		return h.terminalCount() > before
	}, fmt.Sprintf("release of %q to complete an invocation", name))
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func waitUntil(cond func() bool, what string) error {
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// invoke runs one step. A *model.Failure error is an operation outcome;
// any other error means the step could not run.
func (h *Harness) invoke(ctx context.Context, step FlowStep) (any, error) {
	res, op, _ := strings.Cut(step.Invoke, ".")
	resource, name := model.Resource(res), model.OperationName(op)
	args := step.Args.model()

	if resource != model.ResourceAuth {
		c, err := h.reg.Controller(resource)
		if err != nil {
			return nil, err
		}
		return c.Invoke(ctx, name, args)
	}

	svc := h.reg.Auth
	switch name {
	case model.OpRegister:
		return svc.Register(ctx, args.Payload)
	case model.OpSignIn:
		return svc.SignIn(ctx, args.Payload)
	case model.OpSignOut:
		return nil, svc.SignOut(ctx)
	case model.OpListUsersPage:
		return svc.ListUsersPage(ctx, args.Page, args.Limit)
	case model.OpDeleteUser:
		return args.ID, svc.DeleteUser(ctx, args.ID)
	default:
		return nil, fmt.Errorf("%s does not support %s", resource, name)
	}
}

// checkExpect validates a step outcome. It returns false with a message
// when the outcome does not match.
func checkExpect(i int, step FlowStep, out any, err error) (string, bool) {
	var failure *model.Failure
	if err != nil && !errors.As(err, &failure) {
		return fmt.Sprintf("flow[%d] %s: %v", i, step.Invoke, err), false
	}
	if step.Expect == nil {
		return "", true
	}

	phase := model.PhaseSucceeded.String()
	if failure != nil {
		phase = model.PhaseFailed.String()
	}
	if phase != step.Expect.Phase {
		detail := ""
		if failure != nil {
			detail = ": " + failure.Message
		}
		return fmt.Sprintf("flow[%d] %s: expected %s, got %s%s", i, step.Invoke, step.Expect.Phase, phase, detail), false
	}

	if step.Expect.Message != "" && (failure == nil || failure.Message != step.Expect.Message) {
		got := ""
		if failure != nil {
			got = failure.Message
		}
		return fmt.Sprintf("flow[%d] %s: expected failure message %q, got %q", i, step.Invoke, step.Expect.Message, got), false
	}

	if len(step.Expect.Result) > 0 {
		actual, err := toMap(out)
		if err != nil {
			return fmt.Sprintf("flow[%d] %s: result: %v", i, step.Invoke, err), false
		}
		if key, ok := subsetMatch(actual, step.Expect.Result); !ok {
			return fmt.Sprintf("flow[%d] %s: result field %q = %v, want %v",
				i, step.Invoke, key, actual[key], step.Expect.Result[key]), false
		}
	}
	return "", true
}

// normalize round-trips v through JSON so YAML and Go values compare
// equal: numbers become float64 and structs become maps.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, err
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", n)
	}
	return m, nil
}
