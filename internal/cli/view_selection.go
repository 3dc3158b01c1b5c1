package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type selectionColumn int

const (
	colProjects selectionColumn = iota
	colTeams
	colActivities
	columnCount
)

var columnTitles = [columnCount]string{"Projects", "Teams", "Activities"}

// statusCycle is the order the status filter moves through on "s".
var statusCycle = []domain.TaskStatus{"", domain.TaskNone, domain.TaskAccepted, domain.TaskRejected}

// referenceLoadedMsg signals that projects, teams and activities were
// fetched into the engine.
type referenceLoadedMsg struct {
	err error
}

// selectionView is the home screen: the project → team → activity
// cascade in three columns, plus the date, status and order filters.
type selectionView struct {
	state   *SharedState
	snap    selection.Snapshot
	focus   selectionColumn
	cursors [columnCount]int
	loading bool
	err     error
}

func newSelectionView(state *SharedState) *selectionView {
	return &selectionView{
		state:   state,
		snap:    state.App.Engine.Snapshot(),
		loading: true,
	}
}

func (v *selectionView) ID() ViewID    { return ViewSelection }
func (v *selectionView) Title() string { return "Selection" }

func (v *selectionView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		key.NewBinding(key.WithKeys("[", "]"), key.WithHelp("[ ]", "month")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
		key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tasks")),
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "log task")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
}

func (v *selectionView) Init() tea.Cmd {
	return v.load()
}

func (v *selectionView) load() tea.Cmd {
	app := v.state.App
	return func() tea.Msg {
		return referenceLoadedMsg{err: app.Loader.LoadReference(context.Background())}
	}
}

// sync re-reads the engine and keeps every cursor inside its column.
func (v *selectionView) sync() {
	v.snap = v.state.App.Engine.Snapshot()
	for c := colProjects; c < columnCount; c++ {
		n := v.columnLen(c)
		if v.cursors[c] >= n {
			v.cursors[c] = max(n-1, 0)
		}
	}
}

func (v *selectionView) columnLen(c selectionColumn) int {
	switch c {
	case colProjects:
		return len(v.snap.Projects)
	case colTeams:
		return len(v.snap.AvailableTeams)
	default:
		return len(v.snap.AvailableActivities)
	}
}

func (v *selectionView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case referenceLoadedMsg:
		v.loading = false
		v.err = msg.err
		v.sync()
		return v, nil

	case snapshotMsg:
		// Back online means the health monitor reloaded reference data.
		if msg.snap.Online && v.err != nil {
			v.err = nil
		}
		if msg.snap.Version >= v.snap.Version {
			v.sync()
		}
		return v, nil

	case refreshViewMsg:
		v.sync()
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v *selectionView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.cursors[v.focus] > 0 {
			v.cursors[v.focus]--
		}
	case "down", "j":
		if v.cursors[v.focus] < v.columnLen(v.focus)-1 {
			v.cursors[v.focus]++
		}
	case "left", "h", "shift+tab":
		if v.focus > colProjects {
			v.focus--
		}
	case "right", "l", "tab":
		if v.focus < colActivities {
			v.focus++
		}
	case "enter", " ":
		return v, v.choose()
	case "c":
		return v, v.apply(v.clear())
	case "[":
		return v, v.apply(v.state.App.Engine.SetDateRange(shiftMonth(v.snap.DateRange, -1)))
	case "]":
		return v, v.apply(v.state.App.Engine.SetDateRange(shiftMonth(v.snap.DateRange, 1)))
	case "s":
		return v, v.apply(v.state.App.Engine.SetStatusFilter(nextStatus(v.snap.StatusFilter)))
	case "o":
		dir := domain.SortDesc
		if v.snap.SortDirection == domain.SortDesc {
			dir = domain.SortAsc
		}
		return v, v.apply(v.state.App.Engine.SetSortDirection(dir))
	case "t":
		return v, pushView(newHistoryView(v.state))
	case "a":
		return v, pushView(newTaskFormView(v.state))
	case "r":
		v.loading = true
		return v, v.load()
	}
	return v, nil
}

// apply re-syncs after an engine call and reports a rejection.
func (v *selectionView) apply(err error) tea.Cmd {
	v.sync()
	if err != nil {
		return outputCmd(formatter.StyleRed.Render("✖ ") + err.Error())
	}
	return nil
}

// choose selects the item under the cursor, or clears it when it is
// already selected, and moves focus one level down the cascade.
func (v *selectionView) choose() tea.Cmd {
	engine := v.state.App.Engine
	i := v.cursors[v.focus]
	if i >= v.columnLen(v.focus) {
		return nil
	}

	var err error
	switch v.focus {
	case colProjects:
		id := v.snap.Projects[i].ID
		err = engine.SelectProject(toggle(v.snap.ProjectID(), id))
	case colTeams:
		id := v.snap.AvailableTeams[i].ID
		err = engine.SelectTeam(toggle(v.snap.TeamID(), id))
	case colActivities:
		id := v.snap.AvailableActivities[i].ID
		err = engine.SelectActivity(toggle(v.snap.ActivityID(), id))
	}
	cmd := v.apply(err)
	if err == nil && v.focus < colActivities && v.columnLen(v.focus+1) > 0 {
		v.focus++
		v.cursors[v.focus] = 0
	}
	return cmd
}

// clear drops the focused column's selection; the cascade clears below.
func (v *selectionView) clear() error {
	engine := v.state.App.Engine
	switch v.focus {
	case colProjects:
		return engine.SelectProject("")
	case colTeams:
		return engine.SelectTeam("")
	default:
		return engine.SelectActivity("")
	}
}

func toggle(current, id string) string {
	if current == id {
		return ""
	}
	return id
}

func nextStatus(s domain.TaskStatus) domain.TaskStatus {
	for i, st := range statusCycle {
		if st == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return ""
}

// shiftMonth moves r to the calendar month n months from the one it
// starts in.
func shiftMonth(r domain.DateRange, n int) domain.DateRange {
	from := r.From.UTC()
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	return domain.CurrentMonth(first.AddDate(0, n, 0))
}

// selectionPath joins the selected names, e.g. "Acme / Backend".
func selectionPath(s selection.Snapshot) string {
	var parts []string
	if s.SelectedProject != nil {
		parts = append(parts, s.SelectedProject.Name)
	}
	if s.SelectedTeam != nil {
		parts = append(parts, s.SelectedTeam.Name)
	}
	if s.SelectedActivity != nil {
		parts = append(parts, s.SelectedActivity.Name)
	}
	return strings.Join(parts, " / ")
}

// ── rendering ────────────────────────────────────────────────────────────────

func (v *selectionView) View() string {
	if v.loading {
		return "\n  " + formatter.Dim("Loading projects, teams and activities...")
	}
	if v.err != nil {
		return "\n  " + formatter.StyleRed.Render("Error: ") + v.err.Error() + "\n  " + formatter.Dim("r: retry")
	}

	width := max(v.state.Width, 60)
	colWidth := (width - 4) / int(columnCount)
	rows := max(v.state.ContentHeight()-5, 3)

	cols := make([]string, 0, columnCount)
	for c := colProjects; c < columnCount; c++ {
		cols = append(cols, lipgloss.NewStyle().Width(colWidth).Render(v.renderColumn(c, colWidth, rows)))
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n\n")
	b.WriteString(v.renderFilters())
	return b.String()
}

func (v *selectionView) renderColumn(c selectionColumn, width, rows int) string {
	title := columnTitles[c]
	if c == v.focus {
		title = formatter.Header(title)
	} else {
		title = formatter.Dim(title)
	}
	lines := []string{" " + title}

	names, selected := v.columnItems(c)
	if len(names) == 0 {
		lines = append(lines, "   "+formatter.Dim("none"))
		return strings.Join(lines, "\n")
	}

	// Scroll so the cursor stays visible.
	start := 0
	if cur := v.cursors[c]; cur >= rows {
		start = cur - rows + 1
	}
	end := min(start+rows, len(names))
	for i := start; i < end; i++ {
		pointer := "  "
		if c == v.focus && i == v.cursors[c] {
			pointer = formatter.StyleHeader.Render("› ")
		}
		mark := formatter.Dim("○ ")
		name := names[i]
		if i == selected {
			mark = formatter.StyleGreen.Render("● ")
			name = formatter.Bold(name)
		}
		lines = append(lines, " "+pointer+mark+formatter.Truncate(name, width-6))
	}
	if end < len(names) {
		lines = append(lines, "   "+formatter.Dim(fmt.Sprintf("+%d more", len(names)-end)))
	}
	return strings.Join(lines, "\n")
}

// columnItems returns display names and the index of the selected item,
// or -1.
func (v *selectionView) columnItems(c selectionColumn) ([]string, int) {
	sel := -1
	var names []string
	switch c {
	case colProjects:
		for i, p := range v.snap.Projects {
			names = append(names, p.Name)
			if p.ID == v.snap.ProjectID() {
				sel = i
			}
		}
	case colTeams:
		for i, t := range v.snap.AvailableTeams {
			names = append(names, t.Name)
			if t.ID == v.snap.TeamID() {
				sel = i
			}
		}
	default:
		for i, a := range v.snap.AvailableActivities {
			names = append(names, a.Name)
			if a.ID == v.snap.ActivityID() {
				sel = i
			}
		}
	}
	return names, sel
}

func (v *selectionView) renderFilters() string {
	s := v.snap
	parts := []string{
		formatter.Dim("Dates ") + s.DateRange.String(),
		formatter.Dim("Status ") + formatter.StatusPill(s.StatusFilter),
		formatter.Dim("Order ") + string(s.SortDirection) + formatter.SortArrow(s.SortDirection),
	}
	line := "  " + strings.Join(parts, "   ")
	if !s.Online {
		line += "\n  " + formatter.StyleRed.Render("Offline: the selection is frozen until the store is reachable.")
	}
	return line
}
