package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayLabel(t *testing.T) {
	now := time.Date(2024, 2, 7, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input time.Time
		want  string
	}{
		{"today", now.Add(-3 * time.Hour), "Today"},
		{"yesterday late", time.Date(2024, 2, 6, 23, 30, 0, 0, time.UTC), "Yesterday"},
		{"3 days past", now.Add(-3 * 24 * time.Hour), "3d ago"},
		{"2 weeks past", now.Add(-14 * 24 * time.Hour), "2024-01-24"},
		{"future", now.Add(48 * time.Hour), "2024-02-09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayLabel(tt.input, now))
		})
	}
}

func TestTruncID(t *testing.T) {
	id := "a1b2c3d4-e5f6-7890-abcd-ef1234567890"
	got := TruncID(id)
	assert.Contains(t, got, "a1b2c3d4")
	assert.NotContains(t, got, "e5f6")

	got = TruncID("short")
	assert.Contains(t, got, "short")
}

func TestRenderBox(t *testing.T) {
	result := RenderBox("TEST", "content here")
	assert.Contains(t, result, "TEST")
	assert.Contains(t, result, "content here")
	assert.Contains(t, result, "╭")
	assert.Contains(t, result, "╰")
}

func TestRenderTable_AlignsStyledCells(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{
		{StyleGreen.Render("xx"), "1"},
		{"yyyy", "2"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], "1")
	assert.Contains(t, lines[3], "yyyy  2")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	assert.Equal(t, "", Truncate("hello", 0))
}
