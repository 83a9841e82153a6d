package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/erpsync/internal/ops"
)

const shellPrompt = "erpsync> "

// ShellOptions holds flags for the shell command.
type ShellOptions struct {
	*RootOptions
	MetricsAddr string
}

// NewShellCommand creates the interactive shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShellOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run commands against one long-lived client",
		Long: `Run commands against one long-lived client.

Every line is one command as it would follow "erpsync" on the command line.
All lines share the same stores and session, so a login stays in effect and
listed items stay cached until the shell exits. Type "exit" or "quit" to
leave.

With --metrics-addr the shell serves Prometheus metrics of every operation
at /metrics on that address.

Example:
  erpsync shell --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runShell(cmd *cobra.Command, opts *ShellOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if opts.MetricsAddr != "" {
		shutdown := serveMetrics(opts, cmd.ErrOrStderr())
		defer shutdown()
	}

	app, err := OpenApp(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start client", err)
	}
	opts.app = app
	defer func() {
		opts.app = nil
		if err := app.Close(); err != nil {
			app.logger.Error("error closing client", "error", err)
		}
	}()

	return repl(ctx, opts.RootOptions, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// serveMetrics starts the metrics endpoint and installs the metrics the
// shell's client records into.
func serveMetrics(opts *ShellOptions, errOut io.Writer) func() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	opts.metrics = ops.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: opts.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(errOut, "metrics server: %v\n", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		opts.metrics = nil
	}
}

// repl reads one command per line until exit, quit or end of input.
// Command errors are printed and the loop continues.
func repl(ctx context.Context, opts *RootOptions, in io.Reader, out, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, shellPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			continue
		}

		root := newShellRoot(opts)
		root.SetArgs(args)
		root.SetIn(in)
		root.SetOut(out)
		root.SetErr(errOut)
		if err := root.ExecuteContext(ctx); err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// newShellRoot builds a fresh command tree for one shell line so flag
// values never leak between lines.
func newShellRoot(opts *RootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "erpsync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(clientCommands(opts)...)
	root.AddCommand(newWhoamiCommand(opts))
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

func newWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := opts.acquire(cmd)
			if err != nil {
				return err
			}
			defer release()

			f := opts.formatter(cmd)
			u, ok := app.Registry.Auth.Store().User()
			if !ok {
				return f.Message("Not signed in", map[string]bool{"signedIn": false})
			}
			return f.Message(fmt.Sprintf("%s <%s> (%s)", u.Username, u.Email, role(u)), u)
		},
	}
}

// splitArgs splits a shell line into words. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
