package cli

import (
	"github.com/NotNullDev/nanomgmt/internal/fetch"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the selection and task history interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(newAppModel(app), tea.WithAltScreen(), tea.WithContext(cmd.Context()))

			// Engine and loader callbacks may run inside Update, so hand
			// their messages to the program without blocking the caller.
			unsubscribe := app.Engine.Subscribe(func(s selection.Snapshot) {
				go p.Send(snapshotMsg{snap: s})
			})
			defer unsubscribe()
			app.Notices = func(n fetch.Notification) {
				go p.Send(noticeMsg{n: n})
			}
			defer func() { app.Notices = nil }()

			_, err := p.Run()
			return err
		},
	}
}
