package cli

import (
	"context"
	"strings"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/fetch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// healthTickMsg fires when the next connectivity probe is due.
type healthTickMsg struct{}

// onlineMsg carries the result of a connectivity probe.
type onlineMsg struct {
	online bool
}

// appModel is the root bubbletea Model for the TUI.
// It manages a view stack, the status line and the health probe loop.
type appModel struct {
	state     *SharedState
	viewStack []View
	health    *fetch.HealthMonitor
	quitting  bool

	// Transient one-line result, cleared by the next key press.
	lastOutput string
}

func newAppModel(app *App) appModel {
	state := newSharedState(app)
	m := appModel{state: state}
	if app.Config.Health.Interval > 0 {
		m.health = fetch.NewHealthMonitor(app.Store, app.Engine, app.Loader, app.Config.Health.Interval, app.Logger)
	}
	m.viewStack = []View{newSelectionView(state)}
	return m
}

// activeView returns the top view on the stack, or nil.
func (m *appModel) activeView() View {
	if len(m.viewStack) == 0 {
		return nil
	}
	return m.viewStack[len(m.viewStack)-1]
}

// pop drops the top view; the root view always stays.
func (m *appModel) pop() {
	if len(m.viewStack) > 1 {
		m.viewStack = m.viewStack[:len(m.viewStack)-1]
	}
}

// forward hands msg to the top view only.
func (m appModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	v := m.activeView()
	if v == nil {
		return m, nil
	}
	updated, cmd := v.Update(msg)
	m.viewStack[len(m.viewStack)-1] = updated.(View)
	return m, cmd
}

// ── health ───────────────────────────────────────────────────────────────────

func (m appModel) probe() tea.Cmd {
	if m.health == nil {
		return nil
	}
	h := m.health
	return func() tea.Msg {
		return onlineMsg{online: h.Check(context.Background())}
	}
}

func (m appModel) scheduleProbe() tea.Cmd {
	if m.health == nil {
		return nil
	}
	return tea.Tick(m.state.App.Config.Health.Interval, func(time.Time) tea.Msg { return healthTickMsg{} })
}

// ── bubbletea interface ──────────────────────────────────────────────────────

func (m appModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	if v := m.activeView(); v != nil {
		cmds = append(cmds, v.Init())
	}
	cmds = append(cmds, m.probe())
	return tea.Batch(cmds...)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.state.Width = msg.Width
		m.state.Height = msg.Height
		return m.forward(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pushViewMsg:
		m.lastOutput = ""
		m.viewStack = append(m.viewStack, msg.view)
		return m, msg.view.Init()

	case popViewMsg:
		m.pop()
		return m, nil

	case refreshViewMsg, snapshotMsg:
		// Broadcast so views under a form reload after it mutates data.
		return m, m.broadcast(msg)

	case cmdOutputMsg:
		m.lastOutput = msg.output
		return m, nil

	case noticeMsg:
		n := msg.n
		m.state.Notice = &n
		return m, nil

	case wizardCompleteMsg:
		// Pop the wizard and run its follow-up, then let the views reload.
		m.pop()
		m.lastOutput = ""
		return m, tea.Batch(msg.nextCmd, refreshViews)

	case healthTickMsg:
		return m, m.probe()

	case onlineMsg:
		return m, tea.Batch(m.broadcast(snapshotMsg{snap: m.state.App.Engine.Snapshot()}), m.scheduleProbe())
	}

	return m.forward(msg)
}

func (m *appModel) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for i, v := range m.viewStack {
		updated, cmd := v.Update(msg)
		m.viewStack[i] = updated.(View)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	m.lastOutput = ""

	// Forms receive every key, including q.
	if v := m.activeView(); v != nil && v.ID() == ViewForm {
		return m.forward(msg)
	}

	switch {
	case msg.String() == "q":
		m.quitting = true
		return m, tea.Quit

	case msg.String() == "x" && m.state.Notice != nil:
		m.state.Notice = nil
		return m, nil

	case msg.Type == tea.KeyEsc:
		m.pop()
		return m, nil
	}

	return m.forward(msg)
}

func (m appModel) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{m.renderHeader(), m.renderNotice()}
	if v := m.activeView(); v != nil {
		sections = append(sections, v.View())
	}
	if m.lastOutput != "" {
		sections = append(sections, "  "+m.lastOutput)
	}
	sections = append(sections, m.renderStatusBar())

	result := strings.Join(sections, "\n")

	// Pad to terminal height to prevent stale line artifacts from
	// bubbletea's line-diff renderer in alt-screen mode.
	if m.state.Height > 0 {
		lines := strings.Count(result, "\n") + 1
		if lines < m.state.Height {
			result += strings.Repeat("\n", m.state.Height-lines)
		}
	}
	return result
}

// ── rendering helpers ────────────────────────────────────────────────────────

func (m *appModel) renderHeader() string {
	title := formatter.StylePurple.Render("nanomgmt")

	var crumbs []string
	for _, v := range m.viewStack {
		if t := v.Title(); t != "" {
			crumbs = append(crumbs, t)
		}
	}
	header := title
	if len(crumbs) > 0 {
		header += " " + formatter.Dim("›") + " " + formatter.Dim(strings.Join(crumbs, " › "))
	}

	snap := m.state.App.Engine.Snapshot()
	if path := selectionPath(snap); path != "" {
		header += "  " + formatter.Dim("[") + formatter.StyleGreen.Render(path) + formatter.Dim("]")
	}
	if snap.Online {
		header += "  " + formatter.StyleGreen.Render("● online")
	} else {
		header += "  " + formatter.StyleRed.Render("● offline")
	}

	sep := formatter.Dim(strings.Repeat("─", max(m.state.Width, 20)))
	return header + "\n" + sep
}

func (m *appModel) renderNotice() string {
	n := m.state.Notice
	if n == nil {
		return ""
	}
	style := formatter.StyleYellow
	if n.Level == fetch.LevelError {
		style = formatter.StyleRed
	}
	line := style.Render("⚠ "+n.Title) + " " + formatter.Dim(n.Message) + "  " + formatter.Dim("x: dismiss")
	return formatter.Truncate(line, max(m.state.Width, 20))
}

func (m *appModel) renderStatusBar() string {
	var hints []string
	if v := m.activeView(); v != nil {
		for _, b := range v.ShortHelp() {
			hints = append(hints, formatter.Dim(b.Help().Key+": "+b.Help().Desc))
		}
	}
	if v := m.activeView(); v == nil || v.ID() != ViewForm {
		if len(m.viewStack) > 1 {
			hints = append(hints, formatter.Dim("esc: back"))
		}
		hints = append(hints, formatter.Dim("q: quit"))
	}

	bar := strings.Join(hints, "  ")
	sepStyle := lipgloss.NewStyle().Foreground(formatter.ColorDim)
	sep := sepStyle.Render(strings.Repeat("─", max(m.state.Width, 20)))
	return sep + "\n" + bar
}
