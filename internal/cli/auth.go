package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/erpsync/internal/auth"
	"github.com/roach88/erpsync/internal/model"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	var (
		fullName, username, email, password string
		admin                               bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an operator account",
		Long: `Create an operator account. Registering does not sign in.

Example:
  erpsync register --full-name "Ada Lovelace" --username ada --email ada@example.com --password secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := opts.acquire(cmd)
			if err != nil {
				return err
			}
			defer release()

			f := opts.formatter(cmd)
			accepted, err := app.Registry.Auth.Register(cmd.Context(), model.Payload{
				"fullName": fullName,
				"username": username,
				"email":    email,
				"password": password,
				"admin":    admin,
			})
			if err != nil {
				return f.Failure("registration failed", err)
			}
			if !accepted {
				return f.Message("Server did not confirm registration of "+email, map[string]any{"email": email, "accepted": false})
			}
			return f.Message("Registered "+email, map[string]any{"email": email, "accepted": true})
		},
	}

	cmd.Flags().StringVar(&fullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&username, "username", "", "user name")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant administrator access")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

type credentials struct {
	email    string
	password string
}

func (c *credentials) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "email address")
	cmd.Flags().StringVar(&c.password, "password", "", "password")
}

func (c *credentials) payload() model.Payload {
	return model.Payload{"email": c.email, "password": c.password}
}

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	creds := &credentials{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := opts.acquire(cmd)
			if err != nil {
				return err
			}
			defer release()

			f := opts.formatter(cmd)
			u, err := app.Registry.Auth.SignIn(cmd.Context(), creds.payload())
			if err != nil {
				return f.Failure("sign-in failed", err)
			}
			return f.Message(fmt.Sprintf("Signed in as %s (%s)", u.Username, role(u)), u)
		},
	}

	creds.addFlags(cmd)
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := opts.acquire(cmd)
			if err != nil {
				return err
			}
			defer release()

			f := opts.formatter(cmd)
			if err := app.Registry.Auth.SignOut(cmd.Context()); err != nil {
				return f.Failure("sign-out failed", err)
			}
			return f.Message("Signed out", map[string]bool{"signedIn": false})
		},
	}
}

// NewUsersCommand creates the administrator-only users command group.
func NewUsersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer operator accounts",
		Long: `Administer operator accounts. Requires an administrator session.

Outside the shell pass --email and --password to sign in first, since a
single command does not remember who signed in.`,
	}
	cmd.AddCommand(newUsersListCommand(opts), newUsersDeleteCommand(opts))
	return cmd
}

func newUsersListCommand(opts *RootOptions) *cobra.Command {
	creds := &credentials{}
	var page, limit int
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(opts, cmd, creds, func(svc *auth.Service, f *OutputFormatter) error {
				if st := svc.Store().Status(model.OpListUsersPage); st == model.StatusSucceeded &&
					!svc.Store().Users().Pagination.InRange(page) {
					return NewExitError(ExitCommandError, fmt.Sprintf("page %d is out of range", page))
				}
				p, err := svc.ListUsersPage(cmd.Context(), page, limit)
				if err != nil {
					return f.Failure("listing users failed", err)
				}
				users := svc.Store().SearchUsers(query)
				rows := make([][]string, len(users))
				for i, u := range users {
					rows[i] = []string{u.ID, u.FullName, u.Username, u.Email, strconv.FormatBool(u.Admin)}
				}
				return f.Table([]string{"ID", "NAME", "USERNAME", "EMAIL", "ADMIN"}, rows, map[string]any{
					"users":      users,
					"pagination": p.Pagination,
				})
			})
		},
	}

	creds.addFlags(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default from config)")
	cmd.Flags().StringVar(&query, "search", "", "filter fetched users by name, username or email")
	return cmd
}

func newUsersDeleteCommand(opts *RootOptions) *cobra.Command {
	creds := &credentials{}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(opts, cmd, creds, func(svc *auth.Service, f *OutputFormatter) error {
				if err := svc.DeleteUser(cmd.Context(), args[0]); err != nil {
					return f.Failure("deleting user failed", err)
				}
				return f.Message("Deleted user "+args[0], map[string]string{"deleted": args[0]})
			})
		},
	}

	creds.addFlags(cmd)
	return cmd
}

// withAdmin signs in when credentials are given, then runs fn only for an
// administrator session.
func withAdmin(opts *RootOptions, cmd *cobra.Command, creds *credentials, fn func(*auth.Service, *OutputFormatter) error) error {
	app, release, err := opts.acquire(cmd)
	if err != nil {
		return err
	}
	defer release()

	f := opts.formatter(cmd)
	svc := app.Registry.Auth
	if creds.email != "" {
		if _, err := svc.SignIn(cmd.Context(), creds.payload()); err != nil {
			return f.Failure("sign-in failed", err)
		}
	}

	switch err := app.Registry.RequireAdmin(); {
	case errors.Is(err, auth.ErrNotSignedIn):
		return NewExitError(ExitCommandError, "not signed in: run login in the shell or pass --email and --password")
	case errors.Is(err, auth.ErrForbidden):
		return NewExitError(ExitFailure, "administrator access required")
	case err != nil:
		return err
	}
	return fn(svc, f)
}

func role(u model.User) string {
	if u.Admin {
		return "administrator"
	}
	return "operator"
}
