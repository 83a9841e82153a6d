package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/erpsync/internal/model"
)

// DashboardRow summarizes one resource after a refresh.
type DashboardRow struct {
	Resource   model.Resource   `json:"resource"`
	Items      int              `json:"items"`
	Pagination model.Pagination `json:"pagination"`
	Status     string           `json:"status"`
	Error      *model.Failure   `json:"error,omitempty"`
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Fetch the first page of every resource and summarize it",
		Long: `Fetch the first page of every resource concurrently and print one
summary row per resource. A resource that fails to load is reported in its
row; the command then exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := opts.acquire(cmd)
			if err != nil {
				return err
			}
			defer release()

			if limit == 0 {
				limit = app.Config.PageLimit
			}
			refreshErr := app.Registry.Refresh(cmd.Context(), 1, limit)

			var rows []DashboardRow
			var table [][]string
			for _, c := range app.Registry.Controllers() {
				p := c.Pagination()
				row := DashboardRow{
					Resource:   c.Resource(),
					Items:      c.Count(),
					Pagination: p,
					Status:     c.Status(model.OpListPage).String(),
					Error:      c.LastError(model.OpListPage),
				}
				rows = append(rows, row)
				table = append(table, []string{
					string(row.Resource),
					strconv.Itoa(row.Items),
					strconv.Itoa(p.CurrentPage),
					strconv.Itoa(p.TotalPages),
					strconv.Itoa(p.TotalItems),
					row.Status,
				})
			}

			f := opts.formatter(cmd)
			if err := f.Table([]string{"RESOURCE", "ITEMS", "PAGE", "PAGES", "TOTAL", "STATUS"}, table, rows); err != nil {
				return err
			}
			if refreshErr != nil {
				var failure *model.Failure
				if errors.As(refreshErr, &failure) {
					return WrapExitError(ExitFailure, "dashboard incomplete", refreshErr)
				}
				return WrapExitError(ExitCommandError, "dashboard incomplete", refreshErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default from config)")
	return cmd
}
