package cli

import (
	"testing"

	"github.com/NotNullDev/nanomgmt/internal/teatest"
)

// TestDriver wraps teatest.Driver with inspection of appModel internals
// (view stack, shared state, status line) the generic driver can't see.
type TestDriver struct {
	*teatest.Driver
}

// NewTestDriver builds the appModel, sets the terminal size and drains
// Init, which loads reference data synchronously from the test store.
func NewTestDriver(t *testing.T, app *App) *TestDriver {
	t.Helper()

	m := newAppModel(app)
	d := teatest.New(t, m, teatest.WithSize(120, 40))
	d.DrainInit()

	return &TestDriver{Driver: d}
}

func (d *TestDriver) appModel() appModel {
	return d.Model.(appModel)
}

// ActiveViewID returns the ViewID of the top view on the stack.
func (d *TestDriver) ActiveViewID() ViewID {
	m := d.appModel()
	v := m.activeView()
	if v == nil {
		return ViewID(-1)
	}
	return v.ID()
}

// ViewStackLen returns the number of views on the stack.
func (d *TestDriver) ViewStackLen() int {
	return len(d.appModel().viewStack)
}

// State returns the shared state for inspection.
func (d *TestDriver) State() *SharedState {
	return d.appModel().state
}

// IsQuitting reports whether the app model or the driver saw a quit.
func (d *TestDriver) IsQuitting() bool {
	return d.appModel().quitting || d.Quitting
}

// LastOutput returns the transient status line.
func (d *TestDriver) LastOutput() string {
	return d.appModel().lastOutput
}

// History returns the history view when it is on top of the stack.
func (d *TestDriver) History() *historyView {
	d.T.Helper()
	m := d.appModel()
	v, ok := m.activeView().(*historyView)
	if !ok {
		d.T.Fatalf("active view is %T, not the history view", m.activeView())
	}
	return v
}
