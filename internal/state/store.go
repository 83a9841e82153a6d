package state

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tiendc/go-deepcopy"

	"github.com/roach88/erpsync/internal/model"
)

// Store owns the state of one resource and is its only mutator.
//
// Thread-safety model:
//   - Apply(): called by the engine's single-writer loop
//   - State()/Snapshot()/Subscribe(): safe from any goroutine
type Store[T model.Entity] struct {
	mu      sync.RWMutex
	rules   Rules[T]
	current State[T]

	subsMu  sync.Mutex
	subs    map[int]func(State[T])
	nextSub int

	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for transition debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a store in its initial state.
func New[T model.Entity](rules Rules[T], opts ...Option) *Store[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		rules:   rules,
		current: Initial(rules),
		subs:    make(map[int]func(State[T])),
		logger:  o.logger,
	}
}

// Resource returns the resource this store accepts events for.
func (s *Store[T]) Resource() model.Resource {
	return s.rules.Resource
}

// Rules returns the rules the store was built with.
func (s *Store[T]) Rules() Rules[T] {
	return s.rules
}

// Apply reduces one event into the current state and notifies subscribers.
func (s *Store[T]) Apply(ev model.Event) {
	s.mu.Lock()
	next := Reduce(s.current, ev, s.rules)
	s.current = next
	s.mu.Unlock()

	s.logger.Debug("store transition",
		"resource", ev.Resource,
		"op", ev.Op,
		"phase", ev.Phase,
		"seq", ev.Seq,
		"items", len(next.Items),
	)

	s.notify(next)
}

// State returns the current state.
// The returned value shares memory with the store and must be treated as
// read-only; use Snapshot for a private copy.
func (s *Store[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Snapshot returns a deep copy of the current state.
func (s *Store[T]) Snapshot() (State[T], error) {
	cur := s.State()

	var out State[T]
	if err := deepcopy.Copy(&out, &cur); err != nil {
		return State[T]{}, fmt.Errorf("snapshot %s: %w", s.rules.Resource, err)
	}
	return out, nil
}

// Subscribe registers fn to be called with the new state after every
// applied event. Returns a function that removes the subscription.
//
// Subscribers run on the applying goroutine and must not block.
func (s *Store[T]) Subscribe(fn func(State[T])) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store[T]) notify(next State[T]) {
	s.subsMu.Lock()
	fns := make([]func(State[T]), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}
