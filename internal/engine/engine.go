package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/erpsync/internal/model"
)

// Applier is a store that accepts lifecycle events for one resource.
type Applier interface {
	Resource() model.Resource
	Apply(ev model.Event)
}

// Engine is the single-writer loop applying lifecycle events to stores.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine
//   - Register(): safe from any goroutine, normally called before Run
//   - Run(): must be called from exactly one goroutine, at most once
type Engine struct {
	clock  *Clock
	queue  *eventQueue
	logger *slog.Logger

	mu        sync.RWMutex
	appliers  map[model.Resource]Applier
	observers []func(model.Event)

	stopped  chan struct{}
	stopOnce sync.Once
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver registers fn to be called with every event after it has been
// applied. Observers run on the Run goroutine and must not block.
func WithObserver(fn func(model.Event)) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, fn)
	}
}

// WithClock sets the clock used to stamp applied events.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine with no registered stores.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:    NewClock(0),
		queue:    newEventQueue(),
		logger:   slog.Default(),
		appliers: make(map[model.Resource]Applier),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register routes events of the applier's resource to it.
// Registering a second applier for the same resource replaces the first.
func (e *Engine) Register(a Applier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appliers[a.Resource()] = a
}

// Dispatch enqueues an event and waits until Run has applied it.
//
// The event is enqueued even when ctx is already done; ctx only bounds the
// wait. An enqueued event is applied by Run regardless of what happens to
// the caller afterwards.
//
// Returns ErrStopped if the engine is not accepting or stopped before the
// event was applied.
func (e *Engine) Dispatch(ctx context.Context, ev model.Event) error {
	e.mu.RLock()
	_, ok := e.appliers[ev.Resource]
	e.mu.RUnlock()
	if !ok {
		return &UnknownResourceError{Resource: ev.Resource}
	}

	item := queued{event: ev, done: make(chan struct{})}
	if !e.queue.Enqueue(item) {
		return ErrStopped
	}

	select {
	case <-item.done:
		return nil
	case <-e.stopped:
		select {
		case <-item.done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the single-writer event loop.
// Blocks until ctx is cancelled or Stop() is called and the queue drained.
//
// CRITICAL: Must be called from exactly ONE goroutine.
// Every store transition happens in this goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")
	defer e.stopOnce.Do(func() { close(e.stopped) })

	for {
		item, ok := e.queue.TryDequeue()
		if ok {
			e.apply(item)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled", "pending", e.queue.Len())
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which makes this case fire immediately.
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop stops accepting events. Run applies what is already queued and
// returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Done returns a channel closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.stopped
}

// Clock returns the engine's clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the number of events waiting to be applied.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// apply stamps the event with its arrival order and hands it to the store.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) apply(item queued) {
	ev := item.event
	ev.Seq = e.clock.Next()

	e.mu.RLock()
	a := e.appliers[ev.Resource]
	observers := e.observers
	e.mu.RUnlock()

	if a != nil {
		a.Apply(ev)
	}

	e.logger.Debug("event applied",
		"seq", ev.Seq,
		"invocation", ev.InvocationID,
		"resource", ev.Resource,
		"op", ev.Op,
		"phase", ev.Phase,
	)

	for _, fn := range observers {
		fn(ev)
	}
	close(item.done)
}
