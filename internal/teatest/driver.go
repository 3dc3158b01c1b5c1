// Package teatest drives a tea.Model without a tea.Program.
//
// Every message goes straight to Update and the returned Cmd is run on the
// test goroutine's behalf until nothing is left to deliver. A Cmd that
// does not answer within cmdTimeout (a tea.Tick, a cursor blink) is
// dropped, so periodic loops run exactly once.
package teatest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// MaxDrainDepth caps how many Cmd generations one delivery may chain.
const MaxDrainDepth = 100

// Store queries against an in-memory database answer in a few
// milliseconds; timers wait far longer.
const cmdTimeout = 50 * time.Millisecond

// Driver owns the model under test.
type Driver struct {
	T     *testing.T
	Model tea.Model

	// Quitting is set once a tea.QuitMsg was produced. The runtime
	// normally swallows it, so models rarely record it themselves.
	Quitting bool

	// Seen lists every message delivered to Update, in order.
	Seen []tea.Msg
}

type Option func(*Driver)

// WithSize delivers a WindowSizeMsg before anything else.
func WithSize(w, h int) Option {
	return func(d *Driver) {
		d.Model, _ = d.Model.Update(tea.WindowSizeMsg{Width: w, Height: h})
	}
}

// New wraps model. Init is not run until DrainInit.
func New(t *testing.T, model tea.Model, opts ...Option) *Driver {
	t.Helper()
	d := &Driver{T: t, Model: model}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) DrainInit() {
	d.T.Helper()
	d.drain(d.Model.Init(), 0)
}

// Send delivers msg and everything its Cmds produce.
func (d *Driver) Send(msg tea.Msg) {
	d.T.Helper()
	if !d.Quitting {
		d.deliver(msg, 0)
	}
}

var namedKeys = map[string]tea.KeyType{
	"enter":  tea.KeyEnter,
	"esc":    tea.KeyEsc,
	"tab":    tea.KeyTab,
	"up":     tea.KeyUp,
	"down":   tea.KeyDown,
	"left":   tea.KeyLeft,
	"right":  tea.KeyRight,
	"ctrl+c": tea.KeyCtrlC,
	"space":  tea.KeySpace,
}

// Press sends one named key ("enter", "esc", "ctrl+c", ...). Anything
// else is typed as runes.
func (d *Driver) Press(name string) {
	d.T.Helper()
	if kt, ok := namedKeys[name]; ok {
		d.Send(tea.KeyMsg{Type: kt})
		return
	}
	d.Type(name)
}

func (d *Driver) PressKey(r rune) {
	d.T.Helper()
	d.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func (d *Driver) PressEnter() { d.T.Helper(); d.Press("enter") }
func (d *Driver) PressEsc()   { d.T.Helper(); d.Press("esc") }
func (d *Driver) PressCtrlC() { d.T.Helper(); d.Press("ctrl+c") }
func (d *Driver) PressTab()   { d.T.Helper(); d.Press("tab") }
func (d *Driver) PressUp()    { d.T.Helper(); d.Press("up") }
func (d *Driver) PressDown()  { d.T.Helper(); d.Press("down") }
func (d *Driver) PressLeft()  { d.T.Helper(); d.Press("left") }
func (d *Driver) PressRight() { d.T.Helper(); d.Press("right") }

// Type sends s one rune at a time.
func (d *Driver) Type(s string) {
	d.T.Helper()
	for _, r := range s {
		d.PressKey(r)
	}
}

func (d *Driver) View() string {
	return d.Model.View()
}

func (d *Driver) deliver(msg tea.Msg, depth int) {
	d.Seen = append(d.Seen, msg)
	var next tea.Cmd
	d.Model, next = d.Model.Update(msg)
	d.drain(next, depth+1)
}

func (d *Driver) drain(cmd tea.Cmd, depth int) {
	d.T.Helper()
	if cmd == nil {
		return
	}
	if depth >= MaxDrainDepth {
		d.T.Logf("teatest: gave up draining after %d generations", MaxDrainDepth)
		return
	}

	switch msg := runWithTimeout(cmd).(type) {
	case nil:
	case tea.BatchMsg:
		for _, sub := range msg {
			d.drain(sub, depth+1)
		}
	case tea.QuitMsg:
		d.Quitting = true
		d.Seen = append(d.Seen, msg)
		d.Model, _ = d.Model.Update(msg)
	default:
		if isBlink(msg) {
			return
		}
		d.deliver(msg, depth)
	}
}

func runWithTimeout(cmd tea.Cmd) tea.Msg {
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(cmdTimeout):
		return nil
	}
}

// Cursor blink messages are unexported bubbles types; each one schedules
// another timer.
func isBlink(msg tea.Msg) bool {
	return strings.Contains(strings.ToLower(fmt.Sprintf("%T", msg)), "blink")
}
