package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/NotNullDev/nanomgmt/internal/selection"
)

const commentWidth = 40

// TaskHeaders are the columns of every task listing.
var TaskHeaders = []string{"ID", "DATE", "TEAM", "ACTIVITY", "USER", "HOURS", "STATUS", "COMMENT"}

// TaskRow flattens one task into TaskHeaders order, without styling.
func TaskRow(t domain.Task) []string {
	return []string{
		t.ID,
		t.Day(),
		t.TeamName,
		t.ActivityName,
		t.UserName,
		strings.TrimSuffix(FormatHours(t.Duration), "h"),
		string(t.Status),
		t.Comment,
	}
}

// FormatTasks renders tasks as a styled table.
func FormatTasks(tasks []domain.Task, now time.Time) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			TruncID(t.ID),
			DayLabel(t.Date, now),
			OrDash(t.TeamName),
			OrDash(t.ActivityName),
			OrDash(t.UserName),
			FormatHours(t.Duration),
			StatusPill(t.Status),
			Truncate(t.Comment, commentWidth),
		})
	}
	return RenderTable(TaskHeaders, rows)
}

// FormatTaskPage renders one page of tasks with a paging footer.
func FormatTaskPage(page domain.TaskPage, now time.Time) string {
	if len(page.Items) == 0 {
		return Dim("No tasks match.") + "\n"
	}
	var b strings.Builder
	b.WriteString(FormatTasks(page.Items, now))
	b.WriteString(Dim(PageFooter(page)))
	b.WriteString("\n")
	return b.String()
}

// PageFooter summarizes paging, e.g. "page 2/5 · 130 tasks".
func PageFooter(page domain.TaskPage) string {
	pages := 1
	if page.PerPage > 0 && page.AllCount > 0 {
		pages = (page.AllCount + page.PerPage - 1) / page.PerPage
	}
	return fmt.Sprintf("page %d/%d · %d tasks", max(page.Page, 1), pages, page.AllCount)
}

// FormatSelection renders the selection chain with what is still
// selectable at each level.
func FormatSelection(s selection.Snapshot) string {
	var b strings.Builder
	b.WriteString(Header("Selection"))
	b.WriteString("\n")

	projects := make([]string, 0, len(s.Projects))
	for _, p := range s.Projects {
		projects = append(projects, p.Name)
	}
	teams := make([]string, 0, len(s.AvailableTeams))
	for _, t := range s.AvailableTeams {
		teams = append(teams, t.Name)
	}
	activities := make([]string, 0, len(s.AvailableActivities))
	for _, a := range s.AvailableActivities {
		activities = append(activities, a.Name)
	}

	var project, team, activity string
	if s.SelectedProject != nil {
		project = s.SelectedProject.Name
	}
	if s.SelectedTeam != nil {
		team = s.SelectedTeam.Name
	}
	if s.SelectedActivity != nil {
		activity = s.SelectedActivity.Name
	}

	rows := [][]string{
		{"Project", selectedOrDash(project), Dim(strings.Join(projects, ", "))},
		{"Team", selectedOrDash(team), Dim(strings.Join(teams, ", "))},
		{"Activity", selectedOrDash(activity), Dim(strings.Join(activities, ", "))},
		{"Dates", s.DateRange.String(), ""},
		{"Status", StatusPill(s.StatusFilter), ""},
		{"Sort", sortLabel(s.SortDirection), ""},
	}
	b.WriteString(RenderTable([]string{"FIELD", "SELECTED", "AVAILABLE"}, rows))
	if !s.Online {
		b.WriteString(StyleRed.Render("offline: selection is frozen until the store is reachable"))
		b.WriteString("\n")
	}
	return b.String()
}

func selectedOrDash(name string) string {
	if name == "" {
		return Dim("--")
	}
	return Bold(name)
}

func sortLabel(d domain.SortDirection) string {
	if d == domain.SortNone {
		return Dim("--")
	}
	return string(d) + SortArrow(d)
}

// FormatQuery renders a built record query.
func FormatQuery(q query.Query) string {
	rows := [][]string{
		{"filter", OrDash(q.Predicate.String())},
		{"sort", OrDash(q.Sort.String())},
		{"page", fmt.Sprint(q.Page)},
		{"perPage", fmt.Sprint(q.Limit)},
	}
	return RenderTable([]string{"PARAM", "VALUE"}, rows)
}
