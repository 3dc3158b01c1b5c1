package cli

import (
	"github.com/NotNullDev/nanomgmt/internal/fetch"
	"github.com/NotNullDev/nanomgmt/internal/query"
)

// SharedState holds context shared across all views via pointer.
type SharedState struct {
	App *App

	// History filter, kept across view pushes so returning to the
	// history view restores sort and page.
	Filter query.Filter

	// Last loader notification, shown under the header until dismissed.
	Notice *fetch.Notification

	// Terminal dimensions
	Width  int
	Height int
}

func newSharedState(app *App) *SharedState {
	return &SharedState{
		App:    app,
		Filter: query.Filter{Limit: app.Config.Query.Limit},
	}
}

// ContentHeight returns the available height for view content,
// accounting for header (2 lines: title + separator) and status bar
// (2 lines: separator + hints), plus one notice line.
func (s *SharedState) ContentHeight() int {
	h := s.Height - 5
	if h < 1 {
		return 1
	}
	return h
}
