package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/NotNullDev/nanomgmt/internal/query"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// historyLoadedMsg carries one page of tasks. applied is false when a
// newer load overtook this one.
type historyLoadedMsg struct {
	page    domain.TaskPage
	applied bool
	err     error
}

// reviewDoneMsg reports an accept or reject so the page can reload.
type reviewDoneMsg struct {
	output string
}

// sortColumns maps the digit keys to the sortable columns and the header
// each one decorates.
var sortColumns = []struct {
	col    query.Column
	header string
}{
	{query.ColumnTeam, "TEAM"},
	{query.ColumnUser, "USER"},
	{query.ColumnTaskDuration, "HOURS"},
	{query.ColumnDate, "DATE"},
	{query.ColumnTaskStatus, "STATUS"},
}

// historyView pages through tasks matching the selection and the view's
// own filter, which lives in SharedState so it survives navigation.
type historyView struct {
	state   *SharedState
	page    domain.TaskPage
	cursor  int
	loading bool
	err     error

	// Engine version the page was loaded for.
	version uint64
}

func newHistoryView(state *SharedState) *historyView {
	return &historyView{state: state, loading: true}
}

func (v *historyView) ID() ViewID    { return ViewHistory }
func (v *historyView) Title() string { return "Tasks" }

func (v *historyView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "sort")),
		key.NewBinding(key.WithKeys("n", "p"), key.WithHelp("n/p", "page")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "log")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		key.NewBinding(key.WithKeys("A", "R"), key.WithHelp("A/R", "accept/reject")),
		key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "reject day")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

func (v *historyView) Init() tea.Cmd {
	return v.load()
}

func (v *historyView) load() tea.Cmd {
	app := v.state.App
	f := v.state.Filter
	v.loading = true
	v.version = app.Engine.Snapshot().Version
	return func() tea.Msg {
		page, applied, err := app.Loader.LoadTasks(context.Background(), f)
		return historyLoadedMsg{page: page, applied: applied, err: err}
	}
}

func (v *historyView) current() (domain.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.page.Items) {
		return domain.Task{}, false
	}
	return v.page.Items[v.cursor], true
}

func (v *historyView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.err != nil {
			v.loading = false
			v.err = msg.err
			return v, nil
		}
		if !msg.applied {
			// A newer load is still in flight.
			return v, nil
		}
		v.loading = false
		v.err = nil
		v.page = msg.page
		if v.cursor >= len(v.page.Items) {
			v.cursor = max(len(v.page.Items)-1, 0)
		}
		return v, nil

	case reviewDoneMsg:
		return v, tea.Batch(outputCmd(msg.output), v.load())

	case refreshViewMsg:
		return v, v.load()

	case snapshotMsg:
		if msg.snap.Version != v.version {
			v.state.Filter.Page = 1
			return v, v.load()
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v *historyView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &v.state.Filter
	switch k := msg.String(); k {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(v.page.Items)-1 {
			v.cursor++
		}
	case "1", "2", "3", "4", "5":
		col := sortColumns[k[0]-'1'].col
		if err := f.CycleSort(col); err != nil {
			return v, outputCmd(formatter.StyleRed.Render("✖ ") + err.Error())
		}
		v.cursor = 0
		return v, v.load()
	case "n", "right":
		if f.NextPage(v.page.AllCount) {
			v.cursor = 0
			return v, v.load()
		}
	case "p", "left":
		if f.PrevPage() {
			v.cursor = 0
			return v, v.load()
		}
	case "s":
		_ = f.SetStatus(nextStatus(f.Status))
		v.cursor = 0
		return v, v.load()
	case "r":
		return v, v.load()
	case "a":
		return v, pushView(newTaskFormView(v.state))
	case "e", "enter":
		if t, ok := v.current(); ok {
			return v, pushView(newTaskEditView(v.state, t))
		}
	case "A":
		if t, ok := v.current(); ok {
			return v, v.decide(t, domain.TaskAccepted)
		}
	case "R":
		if t, ok := v.current(); ok {
			return v, v.decide(t, domain.TaskRejected)
		}
	case "D":
		if t, ok := v.current(); ok {
			return v, v.rejectDay(t)
		}
	}
	return v, nil
}

// decide accepts or rejects one task as the current user.
func (v *historyView) decide(t domain.Task, status domain.TaskStatus) tea.Cmd {
	app := v.state.App
	return func() tea.Msg {
		ctx := context.Background()
		me, err := app.Store.CurrentUserID(ctx)
		if err != nil {
			return formErrorOutput(err)
		}
		decide := app.Approvals.Accept
		if status == domain.TaskRejected {
			decide = app.Approvals.Reject
		}
		if _, err := decide(ctx, me, t.ID); err != nil {
			return formErrorOutput(err)
		}
		return reviewDoneMsg{output: fmt.Sprintf("%s %s", formatter.StatusPill(status), formatter.TruncID(t.ID))}
	}
}

// rejectDay rejects every task the row's user logged that day.
func (v *historyView) rejectDay(t domain.Task) tea.Cmd {
	app := v.state.App
	return func() tea.Msg {
		ctx := context.Background()
		me, err := app.Store.CurrentUserID(ctx)
		if err != nil {
			return formErrorOutput(err)
		}
		tasks, err := app.Approvals.RejectDay(ctx, me, t.UserID, t.Date)
		if err != nil {
			return formErrorOutput(err)
		}
		return reviewDoneMsg{output: fmt.Sprintf("%s %d task(s) of %s on %s",
			formatter.StatusPill(domain.TaskRejected), len(tasks), formatter.OrDash(t.UserName), t.Day())}
	}
}

// ── rendering ────────────────────────────────────────────────────────────────

func (v *historyView) View() string {
	if v.err != nil {
		return "\n  " + formatter.StyleRed.Render("Error: ") + v.err.Error() + "\n  " + formatter.Dim("r: retry")
	}
	if v.loading && len(v.page.Items) == 0 {
		return "\n  " + formatter.Dim("Loading tasks...")
	}

	var b strings.Builder
	q := query.Build(v.state.App.Engine.Snapshot(), v.state.Filter)
	b.WriteString("  " + formatter.Dim("filter ") + formatter.Truncate(formatter.OrDash(q.Predicate.String()), max(v.state.Width-10, 20)))
	b.WriteString("\n")
	if len(v.page.Items) == 0 {
		b.WriteString("\n  " + formatter.Dim("No tasks match.") + "\n")
		return b.String()
	}

	now := v.state.App.now()
	rows := make([][]string, 0, len(v.page.Items))
	for i, t := range v.page.Items {
		pointer := " "
		if i == v.cursor {
			pointer = formatter.StyleHeader.Render("›")
		}
		rows = append(rows, []string{
			pointer,
			formatter.DayLabel(t.Date, now),
			formatter.OrDash(t.TeamName),
			formatter.OrDash(t.ActivityName),
			formatter.OrDash(t.UserName),
			formatter.FormatHours(t.Duration),
			formatter.StatusPill(t.Status),
			formatter.Truncate(t.Comment, 30),
		})
	}
	b.WriteString(formatter.RenderTable(v.headers(), rows))
	b.WriteString("  " + formatter.Dim(formatter.PageFooter(v.page)))
	if v.loading {
		b.WriteString("  " + formatter.Dim("refreshing..."))
	}
	return b.String()
}

// headers decorates sortable columns with their key and direction.
func (v *historyView) headers() []string {
	headers := []string{"", "DATE", "TEAM", "ACTIVITY", "USER", "HOURS", "STATUS", "COMMENT"}
	for i, sc := range sortColumns {
		for j, h := range headers {
			if h == sc.header {
				headers[j] = fmt.Sprintf("%s(%d)%s", h, i+1, formatter.SortArrow(v.state.Filter.Sort(sc.col)))
			}
		}
	}
	return headers
}
