package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/resources"
)

// resourceCommand names the command group of one resource.
type resourceCommand struct {
	Resource model.Resource
	Use      string
	Aliases  []string
	Short    string
}

var resourceCommands = []resourceCommand{
	{model.ResourceMaterial, "materials", []string{"material"}, "Manage raw materials"},
	{model.ResourceVendor, "vendors", []string{"vendor"}, "Manage vendors"},
	{model.ResourceOrder, "orders", []string{"order"}, "Manage purchase orders"},
	{model.ResourceProduct, "products", []string{"product"}, "Manage products"},
	{model.ResourceProduction, "productions", []string{"production"}, "Manage production runs"},
	{model.ResourceSale, "sales", []string{"sale"}, "Manage sales"},
}

// NewResourceCommand creates the command group of one resource.
func NewResourceCommand(opts *RootOptions, rc resourceCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:     rc.Use,
		Aliases: rc.Aliases,
		Short:   rc.Short,
	}

	cmd.AddCommand(
		newListCommand(opts, rc),
		newGetCommand(opts, rc),
		newCreateCommand(opts, rc),
		newUpdateCommand(opts, rc),
		newDeleteCommand(opts, rc),
	)
	if rc.Resource == model.ResourceOrder {
		cmd.AddCommand(newReceiveCommand(opts, rc))
	}
	return cmd
}

// withController runs fn against the resource controller of a client.
func withController(opts *RootOptions, cmd *cobra.Command, res model.Resource, fn func(resources.Controller, *OutputFormatter) error) error {
	app, release, err := opts.acquire(cmd)
	if err != nil {
		return err
	}
	defer release()

	c, err := app.Registry.Controller(res)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown resource", err)
	}
	return fn(c, opts.formatter(cmd))
}

type listOptions struct {
	page   int
	limit  int
	all    bool
	search string
}

func newListCommand(opts *RootOptions, rc resourceCommand) *cobra.Command {
	lo := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", rc.Use),
		Long: fmt.Sprintf(`List %s one page at a time, or all at once with --all.

--search filters the fetched items case-insensitively on the fields shown
in the table.

Example:
  erpsync %s list --page 2 --limit 20
  erpsync %s list --all --search steel`, rc.Use, rc.Use, rc.Use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(opts, cmd, rc.Resource, func(c resources.Controller, f *OutputFormatter) error {
				return runList(cmd, c, f, lo)
			})
		},
	}

	cmd.Flags().IntVar(&lo.page, "page", resources.DefaultPage, "page number")
	cmd.Flags().IntVar(&lo.limit, "limit", 0, "page size (default from config)")
	cmd.Flags().BoolVar(&lo.all, "all", false, "fetch every item instead of one page")
	cmd.Flags().StringVar(&lo.search, "search", "", "filter fetched items")

	return cmd
}

func runList(cmd *cobra.Command, c resources.Controller, f *OutputFormatter, lo *listOptions) error {
	op := model.OpListPage
	if lo.all {
		op = model.OpListAll
	} else if c.Status(model.OpListPage) == model.StatusSucceeded && !c.Pagination().InRange(lo.page) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("page %d is out of range (1-%d)", lo.page, c.Pagination().TotalPages))
	}

	if _, err := c.Invoke(cmd.Context(), op, model.Args{Page: lo.page, Limit: lo.limit}); err != nil {
		return f.Failure(fmt.Sprintf("listing %s failed", c.Resource()), err)
	}

	p := c.Pagination()
	data := map[string]any{"items": c.Matching(lo.search)}
	if !lo.all {
		data["pagination"] = p
	}
	if err := f.Table(c.Headers(), c.Rows(lo.search), data); err != nil {
		return err
	}
	if f.Format == "text" && !lo.all {
		fmt.Fprintf(f.Writer, "Page %d of %d (%d total)\n", p.CurrentPage, max(p.TotalPages, 1), p.TotalItems)
	}
	return nil
}

func newGetCommand(opts *RootOptions, rc resourceCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(opts, cmd, rc.Resource, func(c resources.Controller, f *OutputFormatter) error {
				v, err := c.Invoke(cmd.Context(), model.OpGet, model.Args{ID: args[0]})
				if err != nil {
					return f.Failure(fmt.Sprintf("fetching %s %s failed", rc.Resource, args[0]), err)
				}
				return printEntity(f, v)
			})
		},
	}
}

func newCreateCommand(opts *RootOptions, rc resourceCommand) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item from a YAML or JSON file",
		Long: fmt.Sprintf(`Create an item from a YAML or JSON payload file ("-" reads stdin).

Example:
  erpsync %s create --file new.yaml`, rc.Use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}
			return withController(opts, cmd, rc.Resource, func(c resources.Controller, f *OutputFormatter) error {
				v, err := c.Invoke(cmd.Context(), model.OpCreate, model.Args{Payload: payload})
				if err != nil {
					return f.Failure(fmt.Sprintf("creating %s failed", rc.Resource), err)
				}
				return printEntity(f, v)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newUpdateCommand(opts *RootOptions, rc resourceCommand) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an item from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, file)
			if err != nil {
				return err
			}
			return withController(opts, cmd, rc.Resource, func(c resources.Controller, f *OutputFormatter) error {
				v, err := c.Invoke(cmd.Context(), model.OpUpdate, model.Args{ID: args[0], Payload: payload})
				if err != nil {
					return f.Failure(fmt.Sprintf("updating %s %s failed", rc.Resource, args[0]), err)
				}
				return printEntity(f, v)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file with the fields to change (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDeleteCommand(opts *RootOptions, rc resourceCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(opts, cmd, rc.Resource, func(c resources.Controller, f *OutputFormatter) error {
				if _, err := c.Invoke(cmd.Context(), model.OpDelete, model.Args{ID: args[0]}); err != nil {
					return f.Failure(fmt.Sprintf("deleting %s %s failed", rc.Resource, args[0]), err)
				}
				return f.Message(fmt.Sprintf("Deleted %s %s", rc.Resource, args[0]), map[string]string{"deleted": args[0]})
			})
		},
	}
}

func newReceiveCommand(opts *RootOptions, rc resourceCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "receive <id>",
		Short: "Mark a purchase order as received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(opts, cmd, rc.Resource, func(c resources.Controller, f *OutputFormatter) error {
				if _, err := c.Invoke(cmd.Context(), model.OpReceive, model.Args{ID: args[0]}); err != nil {
					return f.Failure(fmt.Sprintf("receiving %s %s failed", rc.Resource, args[0]), err)
				}
				return f.Message(fmt.Sprintf("Received %s %s", rc.Resource, args[0]), map[string]string{"received": args[0]})
			})
		},
	}
}

// readPayload reads a YAML or JSON object from path, or stdin for "-".
func readPayload(cmd *cobra.Command, path string) (model.Payload, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read payload", err)
	}

	var payload model.Payload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to parse payload", err)
	}
	if len(payload) == 0 {
		return nil, NewExitError(ExitCommandError, "payload is empty")
	}
	return payload, nil
}

// printEntity writes v as YAML in text mode, keyed by its wire names.
func printEntity(f *OutputFormatter, v any) error {
	if f.Format == "json" {
		return f.Success(v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	out, err := yaml.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = f.Writer.Write(out)
	return err
}
