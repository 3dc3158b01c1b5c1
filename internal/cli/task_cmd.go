package cli

import (
	"context"
	"fmt"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List, log and edit tasks",
	}

	cmd.AddCommand(
		newTasksListCmd(app),
		newTasksAddCmd(app),
		newTasksUpdateCmd(app),
		newTasksExportCmd(app),
	)

	return cmd
}

// loadPage resolves the selection and fetches one page of tasks through
// the loader, the same path the history view takes.
func loadPage(ctx context.Context, app *App, sel *selectionFlags, ff *filterFlags) (domain.TaskPage, error) {
	if _, err := sel.apply(ctx, app); err != nil {
		return domain.TaskPage{}, err
	}
	f, err := ff.filter(app.Config.Query.Limit)
	if err != nil {
		return domain.TaskPage{}, err
	}
	page, _, err := app.Loader.LoadTasks(ctx, f)
	return page, err
}

func newTasksListCmd(app *App) *cobra.Command {
	var sel selectionFlags
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of tasks for the selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := loadPage(cmd.Context(), app, &sel, &ff)
			if err != nil {
				return err
			}
			out := pageOut{Tasks: toTaskOuts(page.Items), Page: page.Page, PerPage: page.PerPage, TotalItems: page.AllCount}
			return app.render(cmd, out, func() string { return formatter.FormatTaskPage(page, app.now()) })
		},
	}
	sel.bind(cmd.Flags())
	ff.bind(cmd.Flags())
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var activity, date, comment string
	var hours float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log hours against an activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actID, err := resolveActivity(ctx, app, activity)
			if err != nil {
				return err
			}
			day, err := parseDay(date, app.now())
			if err != nil {
				return err
			}
			created, err := app.Tasks.Create(ctx, domain.Task{
				ActivityID: actID,
				Date:       day,
				Duration:   hours,
				Comment:    comment,
			})
			if err != nil {
				return err
			}
			return app.render(cmd, toTaskOut(created), func() string {
				return fmt.Sprintf("Logged %s on %s %s\n", formatter.FormatHours(created.Duration), created.Day(), formatter.TruncID(created.ID))
			})
		},
	}
	cmd.Flags().StringVar(&activity, "activity", "", "activity id or name (required)")
	cmd.Flags().StringVar(&date, "date", "", "day worked, YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&hours, "hours", domain.DefaultTaskHours, "hours worked")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "what was done")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

// resolveActivity accepts an activity id or name among every activity.
func resolveActivity(ctx context.Context, app *App, input string) (string, error) {
	if err := app.Loader.LoadActivities(ctx); err != nil {
		return "", err
	}
	return resolveRef("activity", input, app.Engine.Snapshot().Activities, func(a domain.Activity) (string, string) { return a.ID, a.Name })
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var activity, date, comment string
	var hours float64
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a task; a rejected task goes back to review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var patch domain.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("activity") {
				actID, err := resolveActivity(ctx, app, activity)
				if err != nil {
					return err
				}
				patch.ActivityID = &actID
			}
			if flags.Changed("date") {
				day, err := domain.ParseTimestamp(date)
				if err != nil {
					return err
				}
				patch.Date = &day
			}
			if flags.Changed("hours") {
				patch.Duration = &hours
			}
			if flags.Changed("comment") {
				patch.Comment = &comment
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update: pass --activity, --date, --hours or --comment")
			}

			updated, err := app.Tasks.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return app.render(cmd, toTaskOut(updated), func() string {
				return fmt.Sprintf("Updated task %s (%s)\n", formatter.TruncID(updated.ID), formatter.StatusPill(updated.Status))
			})
		},
	}
	cmd.Flags().StringVar(&activity, "activity", "", "move to this activity id or name")
	cmd.Flags().StringVar(&date, "date", "", "new day, YYYY-MM-DD")
	cmd.Flags().Float64Var(&hours, "hours", 0, "new duration in hours")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "new comment")
	return cmd
}

func newTasksExportCmd(app *App) *cobra.Command {
	var sel selectionFlags
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every matching task as csv or markdown",
		Long: `Pages through every task matching the selection and filters and writes
them as csv (the default) or, with --format markdown, as a markdown table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format := app.format()
			if format == formatTable {
				format = formatter.ExportCSV
			}

			snap, err := sel.apply(ctx, app)
			if err != nil {
				return err
			}
			f, err := ff.filter(query.MaxLimit)
			if err != nil {
				return err
			}
			f.Page = 1

			var all []domain.Task
			for {
				page, err := app.Tasks.History(ctx, query.Build(snap, f))
				if err != nil {
					return err
				}
				all = append(all, page.Items...)
				if !f.NextPage(page.AllCount) {
					break
				}
			}

			switch format {
			case formatJSON, formatYAML:
				return writeAs(cmd.OutOrStdout(), format, toTaskOuts(all), nil)
			default:
				return formatter.ExportTasks(cmd.OutOrStdout(), all, format)
			}
		},
	}
	sel.bind(cmd.Flags())
	ff.bind(cmd.Flags())
	return cmd
}
