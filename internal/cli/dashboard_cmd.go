package cli

import (
	"fmt"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/service"
	"github.com/spf13/cobra"
)

const dashboardWidth = 80

type monthHoursOut struct {
	Team  string  `json:"team" yaml:"team"`
	Month string  `json:"month" yaml:"month"`
	Hours float64 `json:"hours" yaml:"hours"`
}

type dayOut struct {
	Day    string  `json:"day" yaml:"day"`
	Hours  float64 `json:"hours" yaml:"hours"`
	Status string  `json:"status" yaml:"status"`
}

type userDaysOut struct {
	User  string   `json:"user" yaml:"user"`
	Hours float64  `json:"hours" yaml:"hours"`
	Days  []dayOut `json:"days" yaml:"days"`
}

func newDashboardCmd(app *App) *cobra.Command {
	var user, team, dates string
	var markdown bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Hours per team and month, or a team's days per user",
		Long: `Without --team, totals a user's hours per team per month (MM.YYYY).
With --team, lists every member's day totals for the team, same-day tasks
folded together.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rng := domain.CurrentMonth(app.now())
			if dates != "" {
				r, err := domain.ParseDateRange(dates)
				if err != nil {
					return err
				}
				rng = r
			}

			if team != "" {
				if err := app.Loader.LoadTeams(ctx); err != nil {
					return err
				}
				teamID, err := resolveRef("team", team, app.Engine.Snapshot().Teams, func(t domain.Team) (string, string) { return t.ID, t.Name })
				if err != nil {
					return err
				}
				groups, err := app.Dashboard.TasksByUser(ctx, teamID, rng)
				if err != nil {
					return err
				}
				return app.render(cmd, toUserDaysOut(groups), func() string { return formatter.FormatUserDays(groups) })
			}

			if user == "" {
				me, err := app.Store.CurrentUserID(ctx)
				if err != nil {
					return err
				}
				user = me
			}
			rows, err := app.Dashboard.HoursByTeamMonth(ctx, user, rng)
			if err != nil {
				return err
			}
			out := make([]monthHoursOut, 0, len(rows))
			for _, r := range rows {
				out = append(out, monthHoursOut{Team: r.TeamName, Month: r.Month, Hours: r.Hours})
			}
			return app.render(cmd, out, func() string {
				if markdown || formatter.IsTerminal(cmd.OutOrStdout()) {
					md := formatter.HoursMarkdown(fmt.Sprintf("Hours %s", rng), rows)
					if markdown && !formatter.IsTerminal(cmd.OutOrStdout()) {
						return md
					}
					return formatter.RenderMarkdown(md, dashboardWidth)
				}
				return formatter.FormatHoursTable(rows)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "whose hours to total (default: you)")
	cmd.Flags().StringVar(&team, "team", "", "show a team's days per user instead (id or name)")
	cmd.Flags().StringVar(&dates, "range", "", "date range FROM..TO (default: this month)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print markdown; rendered when stdout is a terminal")
	return cmd
}

func toUserDaysOut(groups []service.UserDays) []userDaysOut {
	out := make([]userDaysOut, 0, len(groups))
	for _, g := range groups {
		u := userDaysOut{User: g.User.DisplayName(), Hours: g.Hours, Days: make([]dayOut, 0, len(g.Days))}
		for _, d := range g.Days {
			u.Days = append(u.Days, dayOut{Day: d.Day, Hours: d.Hours, Status: string(d.Status)})
		}
		out = append(out, u)
	}
	return out
}
