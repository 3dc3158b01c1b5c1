package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/NotNullDev/nanomgmt/internal/fetch"
	"github.com/NotNullDev/nanomgmt/internal/selection"
)

// Navigation messages used by views to request view transitions.
// The appModel handles these in its Update method.

// pushViewMsg pushes a new view onto the navigation stack.
type pushViewMsg struct {
	view View
}

// popViewMsg pops the current view off the navigation stack,
// returning to the previous view.
type popViewMsg struct{}

// cmdOutputMsg carries a one-line result to show in the status area.
type cmdOutputMsg struct {
	output string
}

// wizardCompleteMsg is sent when a wizard form completes or is cancelled.
// The appModel handles it atomically: pop the wizard view, then run nextCmd.
type wizardCompleteMsg struct {
	nextCmd tea.Cmd
}

// refreshViewMsg asks every view on the stack to reload its data.
type refreshViewMsg struct{}

// snapshotMsg carries a new engine snapshot to every view.
type snapshotMsg struct {
	snap selection.Snapshot
}

// noticeMsg carries a loader notification.
type noticeMsg struct {
	n fetch.Notification
}

// pushView returns a tea.Cmd that pushes a view onto the stack.
func pushView(v View) tea.Cmd {
	return func() tea.Msg { return pushViewMsg{view: v} }
}

// popView returns a tea.Cmd that pops the current view.
func popView() tea.Cmd {
	return func() tea.Msg { return popViewMsg{} }
}

func refreshViews() tea.Msg { return refreshViewMsg{} }

func outputCmd(s string) tea.Cmd {
	return func() tea.Msg { return cmdOutputMsg{output: s} }
}
