package teatest

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

type bumpMsg struct{}

type counter struct {
	n     int
	width int
	keys  []string
}

func (c counter) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return bumpMsg{} },
		tea.Tick(time.Hour, func(time.Time) tea.Msg { return bumpMsg{} }),
	)
}

func (c counter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
	case bumpMsg:
		c.n++
	case tea.KeyMsg:
		c.keys = append(c.keys, msg.String())
		switch msg.String() {
		case "+":
			return c, func() tea.Msg { return bumpMsg{} }
		case "q":
			return c, tea.Quit
		}
	}
	return c, nil
}

func (c counter) View() string { return "" }

func TestDriver_InitSkipsSlowTimers(t *testing.T) {
	d := New(t, counter{}, WithSize(80, 24))
	d.DrainInit()

	m := d.Model.(counter)
	assert.Equal(t, 80, m.width)
	assert.Equal(t, 1, m.n)
}

func TestDriver_KeyCmdsAreDrained(t *testing.T) {
	d := New(t, counter{})
	d.Type("++")
	d.Press("enter")

	m := d.Model.(counter)
	assert.Equal(t, 2, m.n)
	assert.Equal(t, []string{"+", "+", "enter"}, m.keys)
}

func TestDriver_QuitStopsDelivery(t *testing.T) {
	d := New(t, counter{})
	d.PressKey('q')
	d.PressKey('+')

	assert.True(t, d.Quitting)
	assert.Equal(t, 0, d.Model.(counter).n)
	assert.IsType(t, tea.QuitMsg{}, d.Seen[len(d.Seen)-1])
}
