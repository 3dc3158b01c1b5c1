package formatter

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/service"
	"github.com/charmbracelet/glamour"
)

// HoursMarkdown renders per team per month hours as a markdown document,
// one section per team.
func HoursMarkdown(title string, rows []domain.TeamMonthHours) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(rows) == 0 {
		b.WriteString("_No hours logged in this range._\n")
		return b.String()
	}

	byTeam := make(map[string][]domain.TeamMonthHours)
	var teams []string
	for _, r := range rows {
		if _, ok := byTeam[r.TeamName]; !ok {
			teams = append(teams, r.TeamName)
		}
		byTeam[r.TeamName] = append(byTeam[r.TeamName], r)
	}
	sort.Strings(teams)

	grand := 0.0
	for _, team := range teams {
		fmt.Fprintf(&b, "## %s\n\n| Month | Hours |\n| --- | ---: |\n", team)
		for _, r := range byTeam[team] {
			fmt.Fprintf(&b, "| %s | %s |\n", r.Month, FormatHours(r.Hours))
			grand += r.Hours
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Total:** %s\n", FormatHours(grand))
	return b.String()
}

// FormatHoursTable is the plain-terminal form of HoursMarkdown.
func FormatHoursTable(rows []domain.TeamMonthHours) string {
	if len(rows) == 0 {
		return Dim("No hours logged in this range.") + "\n"
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.TeamName, r.Month, FormatHours(r.Hours)})
	}
	return RenderTable([]string{"TEAM", "MONTH", "HOURS"}, out)
}

// FormatUserDays renders a team's per user day totals.
func FormatUserDays(groups []service.UserDays) string {
	if len(groups) == 0 {
		return Dim("No tasks in this range.") + "\n"
	}
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "%s  %s\n", Bold(g.User.DisplayName()), Dim(FormatHours(g.Hours)))
		for _, d := range g.Days {
			fmt.Fprintf(&b, "  %s  %s  %s\n", d.Day, RenderHoursBar(d.Hours, domain.DefaultTaskHours, 8), StatusPill(d.Status))
		}
	}
	return b.String()
}

var (
	mdMu        sync.Mutex
	mdRenderers = map[int]*glamour.TermRenderer{}
)

// RenderMarkdown renders md for a terminal of the given width. It returns
// md unchanged when the renderer fails.
func RenderMarkdown(md string, width int) string {
	if width < 20 {
		width = 20
	}
	mdMu.Lock()
	r := mdRenderers[width]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdMu.Unlock()
			return md
		}
		mdRenderers[width] = rr
		r = rr
	}
	mdMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
