package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/erpsync/internal/auth"
	"github.com/roach88/erpsync/internal/config"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/registry"
	"github.com/roach88/erpsync/internal/store"
	"github.com/roach88/erpsync/internal/transport"
	"github.com/roach88/erpsync/internal/validate"
)

// App is a running client: configuration, session and registry.
type App struct {
	Config   config.Config
	Registry *registry.Registry

	session *store.Store
	logger  *slog.Logger
	stop    func() error
}

// OpenApp resolves configuration, opens the session store and starts the
// registry. Close releases everything.
func OpenApp(ctx context.Context, opts *RootOptions, errOut io.Writer) (*App, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: logLevel}))

	app := &App{Config: cfg, logger: logger}

	var tokens interface {
		auth.TokenStore
		transport.TokenSource
	} = opts.Tokens
	if tokens == nil {
		if dir := filepath.Dir(cfg.SessionDB); dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("creating session directory: %w", err)
			}
		}
		logger.Debug("opening session database", "path", cfg.SessionDB)
		app.session, err = store.Open(cfg.SessionDB)
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		tokens = app.session
	}

	tr := opts.Transport
	if tr == nil {
		tr = transport.NewHTTP(cfg.BaseURL,
			transport.WithTimeout(cfg.Timeout),
			transport.WithTokenSource(tokens),
			transport.WithLogger(logger),
		)
	}

	v, err := validate.New()
	if err != nil {
		app.closeSession()
		return nil, fmt.Errorf("loading payload schemas: %w", err)
	}

	app.Registry, err = registry.New(registry.Config{
		Transport: tr,
		Tokens:    tokens,
		Validator: v,
		Notifier:  consoleNotifier(errOut, opts.Format),
		Metrics:   opts.metrics,
		PageLimit: cfg.PageLimit,
		Logger:    logger,
	})
	if err != nil {
		app.closeSession()
		return nil, err
	}
	app.stop = app.Registry.Start(ctx)
	return app, nil
}

// resolveConfig layers flags over the config file and environment.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.SessionDB != "" {
		cfg.SessionDB = opts.SessionDB
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	return cfg, cfg.Validate()
}

// Close stops the registry and closes the session database.
func (a *App) Close() error {
	var err error
	if a.stop != nil {
		if stopErr := a.stop(); stopErr != nil && !errors.Is(stopErr, context.Canceled) {
			err = stopErr
		}
	}
	if closeErr := a.closeSession(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (a *App) closeSession() error {
	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	return err
}

// acquire returns the shell's app, or opens one for a single command. The
// release function closes an app opened here.
func (o *RootOptions) acquire(cmd *cobra.Command) (*App, func(), error) {
	if o.app != nil {
		return o.app, func() {}, nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := OpenApp(ctx, o, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to start client", err)
	}
	return app, func() {
		if err := app.Close(); err != nil {
			app.logger.Error("error closing client", "error", err)
		}
	}, nil
}

// consoleNotifier prints transient notifications to w. JSON output
// suppresses them.
func consoleNotifier(w io.Writer, format string) ops.Notifier {
	return ops.NotifierFunc(func(n ops.Notification) {
		if format == "json" {
			return
		}
		mark := "✓"
		if n.Level == ops.LevelError {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, n.Message)
	})
}
