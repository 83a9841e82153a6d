package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/erpsync/internal/auth"
	"github.com/roach88/erpsync/internal/ops"
	"github.com/roach88/erpsync/internal/transport"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	BaseURL    string
	SessionDB  string
	Timeout    time.Duration

	// Transport overrides the HTTP transport (for testing).
	Transport transport.Transport

	// Tokens overrides the SQLite session store (for testing).
	Tokens interface {
		auth.TokenStore
		transport.TokenSource
	}

	// app is set while the shell runs so every command shares one client.
	app     *App
	metrics *ops.Metrics
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the erpsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erpsync",
		Short: "erpsync - manufacturing ERP client",
		Long: `A command line client for the manufacturing ERP backend.

Manages raw materials, vendors, purchase orders, products, production runs
and sales, and the operator session used to reach them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(cmd, opts)
	cmd.AddCommand(clientCommands(opts)...)
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func addGlobalFlags(cmd *cobra.Command, opts *RootOptions) {
	f := cmd.PersistentFlags()
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	f.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	f.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	f.StringVar(&opts.BaseURL, "base-url", "", "backend base URL (overrides config)")
	f.StringVar(&opts.SessionDB, "session-db", "", "path to session database (overrides config)")
	f.DurationVar(&opts.Timeout, "timeout", 0, "request timeout (overrides config)")
}

// clientCommands are the commands that talk to the backend. The shell
// exposes the same set.
func clientCommands(opts *RootOptions) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(resourceCommands)+5)
	for _, rc := range resourceCommands {
		cmds = append(cmds, NewResourceCommand(opts, rc))
	}
	return append(cmds,
		NewRegisterCommand(opts),
		NewLoginCommand(opts),
		NewLogoutCommand(opts),
		NewUsersCommand(opts),
		NewDashboardCommand(opts),
	)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
