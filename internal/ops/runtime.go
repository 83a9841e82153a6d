package ops

import (
	"context"
	"log/slog"

	"github.com/roach88/erpsync/internal/engine"
	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/transport"
)

// Dispatcher delivers lifecycle events to the stores.
// *engine.Engine satisfies this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.Event) error
}

// Runtime holds what every operation needs to run an invocation.
type Runtime struct {
	transport  transport.Transport
	dispatcher Dispatcher
	ids        engine.IDGenerator
	notifier   Notifier
	metrics    *Metrics
	logger     *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithIDGenerator sets the invocation ID generator. Defaults to UUIDv7.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(r *Runtime) {
		r.ids = g
	}
}

// WithNotifier sets the receiver of transient notifications.
func WithNotifier(n Notifier) Option {
	return func(r *Runtime) {
		r.notifier = n
	}
}

// WithMetrics enables invocation metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// WithLogger sets the runtime logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a runtime issuing requests through t and delivering
// events through d.
func NewRuntime(t transport.Transport, d Dispatcher, opts ...Option) *Runtime {
	r := &Runtime{
		transport:  t,
		dispatcher: d,
		ids:        engine.UUIDv7Generator{},
		notifier:   discardNotifier{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}
