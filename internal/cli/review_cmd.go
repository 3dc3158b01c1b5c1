package cli

import (
	"fmt"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/spf13/cobra"
)

func newReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Accept or reject tasks of teams you manage",
	}

	cmd.AddCommand(
		newReviewPendingCmd(app),
		newReviewDecideCmd(app, "accept", domain.TaskAccepted),
		newReviewDecideCmd(app, "reject", domain.TaskRejected),
		newReviewRejectDayCmd(app),
	)

	return cmd
}

func newReviewPendingCmd(app *App) *cobra.Command {
	var team string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List unreviewed tasks in teams you manage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			me, err := app.Store.CurrentUserID(ctx)
			if err != nil {
				return err
			}
			teamID := ""
			if team != "" {
				if err := app.Loader.LoadTeams(ctx); err != nil {
					return err
				}
				teamID, err = resolveRef("team", team, app.Engine.Snapshot().Teams, func(t domain.Team) (string, string) { return t.ID, t.Name })
				if err != nil {
					return err
				}
			}
			tasks, err := app.Approvals.Pending(ctx, me, teamID)
			if err != nil {
				return err
			}
			return app.render(cmd, toTaskOuts(tasks), func() string {
				if len(tasks) == 0 {
					return formatter.Dim("Nothing to review.") + "\n"
				}
				return formatter.FormatTasks(tasks, app.now())
			})
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "only this team (id or name)")
	return cmd
}

func newReviewDecideCmd(app *App, verb string, status domain.TaskStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " ID...",
		Short: fmt.Sprintf("Mark tasks %s", status),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			me, err := app.Store.CurrentUserID(ctx)
			if err != nil {
				return err
			}
			decide := app.Approvals.Accept
			if status == domain.TaskRejected {
				decide = app.Approvals.Reject
			}
			tasks, err := decide(ctx, me, args...)
			if err != nil {
				return err
			}
			return app.render(cmd, toTaskOuts(tasks), func() string {
				return fmt.Sprintf("%s %d task(s)\n", formatter.StatusPill(status), len(tasks))
			})
		},
	}
}

func newReviewRejectDayCmd(app *App) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "reject-day DAY...",
		Short: "Reject every task a user logged on the given days",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			me, err := app.Store.CurrentUserID(ctx)
			if err != nil {
				return err
			}
			days := make([]time.Time, 0, len(args))
			for _, a := range args {
				d, err := domain.ParseTimestamp(a)
				if err != nil {
					return err
				}
				days = append(days, d)
			}

			var tasks []domain.Task
			if len(days) == 1 {
				tasks, err = app.Approvals.RejectDay(ctx, me, user, days[0])
			} else {
				tasks, err = app.Approvals.SetStatusForDays(ctx, me, user, days, domain.TaskRejected)
			}
			if err != nil {
				return err
			}
			return app.render(cmd, toTaskOuts(tasks), func() string {
				return fmt.Sprintf("%s %d task(s) on %d day(s)\n", formatter.StatusPill(domain.TaskRejected), len(tasks), len(days))
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id whose days are rejected (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
