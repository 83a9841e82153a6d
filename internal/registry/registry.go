// Package registry composes every resource store, the authentication store
// and the engine that feeds them into one object passed to the view layer.
//
// A Registry is created once at startup and lives for the whole process.
// Signing out clears only the session; resource caches survive it.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/erpsync/internal/auth"
	"github.com/roach88/erpsync/internal/engine"
	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/resources"
	"github.com/roach88/erpsync/internal/transport"
	"github.com/roach88/erpsync/internal/validate"
)

// Errors returned by RequireAdmin.
var (
	ErrNotSignedIn = auth.ErrNotSignedIn
	ErrForbidden   = auth.ErrForbidden
)

// Config wires a Registry to its collaborators. Transport and Tokens are
// required; everything else has a default.
type Config struct {
	Transport transport.Transport
	Tokens    auth.TokenStore

	Validator *validate.Validator
	Notifier  ops.Notifier
	Metrics   *ops.Metrics
	IDs       engine.IDGenerator
	PageLimit int
	Logger    *slog.Logger

	// Observer is called with every applied event.
	Observer func(model.Event)
}

// Registry owns the engine, the stores and their operations.
type Registry struct {
	engine *engine.Engine
	logger *slog.Logger

	Auth        *auth.Service
	Materials   *resources.Binding[model.Material]
	Vendors     *resources.Binding[model.Vendor]
	Orders      *resources.Binding[model.Order]
	Products    *resources.Binding[model.Product]
	Productions *resources.Binding[model.Production]
	Sales       *resources.Binding[model.Sale]

	controllers map[model.Resource]resources.Controller
}

// New builds the registry. The engine does not run until Run or Start.
func New(cfg Config) (*Registry, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("registry: transport is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("registry: token store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Observer != nil {
		engineOpts = append(engineOpts, engine.WithObserver(cfg.Observer))
	}
	eng := engine.New(engineOpts...)

	rtOpts := []ops.Option{ops.WithLogger(logger), ops.WithMetrics(cfg.Metrics)}
	if cfg.Notifier != nil {
		rtOpts = append(rtOpts, ops.WithNotifier(cfg.Notifier))
	}
	if cfg.IDs != nil {
		rtOpts = append(rtOpts, ops.WithIDGenerator(cfg.IDs))
	}
	rt := ops.NewRuntime(cfg.Transport, eng, rtOpts...)

	bindOpts := []resources.BindOption{resources.WithPageLimit(cfg.PageLimit)}
	authOpts := []auth.Option{auth.WithPageLimit(cfg.PageLimit)}
	if cfg.Validator != nil {
		bindOpts = append(bindOpts, resources.WithValidator(cfg.Validator))
		authOpts = append(authOpts, auth.WithValidator(cfg.Validator))
	}

	r := &Registry{
		engine:      eng,
		logger:      logger,
		Auth:        auth.NewService(rt, cfg.Tokens, authOpts...),
		Materials:   resources.Bind(rt, resources.Materials(), bindOpts...),
		Vendors:     resources.Bind(rt, resources.Vendors(), bindOpts...),
		Orders:      resources.Bind(rt, resources.Orders(), bindOpts...),
		Products:    resources.Bind(rt, resources.Products(), bindOpts...),
		Productions: resources.Bind(rt, resources.Productions(), bindOpts...),
		Sales:       resources.Bind(rt, resources.Sales(), bindOpts...),
	}

	r.controllers = map[model.Resource]resources.Controller{
		model.ResourceMaterial:   r.Materials,
		model.ResourceVendor:     r.Vendors,
		model.ResourceOrder:      r.Orders,
		model.ResourceProduct:    r.Products,
		model.ResourceProduction: r.Productions,
		model.ResourceSale:       r.Sales,
	}
	for _, c := range r.controllers {
		eng.Register(c.Applier())
	}
	eng.Register(r.Auth.Store())

	return r, nil
}

// Run applies events until ctx is cancelled or Stop is called.
func (r *Registry) Run(ctx context.Context) error {
	return r.engine.Run(ctx)
}

// Start runs the engine in the background. The returned function stops it
// and waits for queued events to be applied.
func (r *Registry) Start(ctx context.Context) (stop func() error) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.engine.Run(ctx)
	}()
	return func() error {
		r.engine.Stop()
		return <-errCh
	}
}

// Stop stops the engine after queued events are applied.
func (r *Registry) Stop() {
	r.engine.Stop()
}

// Controller returns the controller of a domain resource.
func (r *Registry) Controller(res model.Resource) (resources.Controller, error) {
	c, ok := r.controllers[res]
	if !ok {
		return nil, &engine.UnknownResourceError{Resource: res}
	}
	return c, nil
}

// Controllers returns the domain resource controllers in navigation order.
func (r *Registry) Controllers() []resources.Controller {
	out := make([]resources.Controller, 0, len(model.Resources))
	for _, res := range model.Resources {
		out = append(out, r.controllers[res])
	}
	return out
}

// RequireAdmin gates administrator views on the signed-in user.
func (r *Registry) RequireAdmin() error {
	return r.Auth.RequireAdmin()
}

// Refresh fetches one page of every domain resource concurrently. Each
// fetch runs to completion; the first failure is returned.
func (r *Registry) Refresh(ctx context.Context, page, limit int) error {
	var g errgroup.Group
	for _, c := range r.Controllers() {
		g.Go(func() error {
			_, err := c.Invoke(ctx, model.OpListPage, model.Args{Page: page, Limit: limit})
			if err != nil {
				return fmt.Errorf("refreshing %s: %w", c.Resource(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
