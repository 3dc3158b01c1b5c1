package formatter

import (
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestRenderHoursBar(t *testing.T) {
	tests := []struct {
		name   string
		hours  float64
		target float64
		width  int
		want   string
	}{
		{"empty", 0, 8, 4, "[░░░░] 0h"},
		{"half", 4, 8, 4, "[██░░] 4h"},
		{"full", 8, 8, 4, "[████] 8h"},
		{"over clamps", 10, 8, 4, "[████] 10h"},
		{"no target", 3, 0, 4, "[░░░░] 3h"},
		{"tiny width clamps to 2", 8, 8, 1, "[██] 8h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, xansi.Strip(RenderHoursBar(tt.hours, tt.target, tt.width)))
		})
	}
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "8h", FormatHours(8))
	assert.Equal(t, "1.5h", FormatHours(1.5))
	assert.Equal(t, "2h", FormatHours(2.04))
}
