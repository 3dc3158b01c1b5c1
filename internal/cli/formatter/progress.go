package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderHoursBar renders logged hours against a daily target, like
// [██████░░] 6.0h. Short days are yellow, full days green and anything
// past the target red.
func RenderHoursBar(hours, target float64, width int) string {
	if width < 2 {
		width = 2
	}
	pct := 0.0
	if target > 0 {
		pct = hours / target
	}
	pct = min(max(pct, 0), 1)

	filled := int(pct * float64(width))
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleYellow
	switch {
	case target > 0 && hours > target:
		style = StyleRed
	case target > 0 && hours == target:
		style = StyleGreen
	}
	return fmt.Sprintf("[%s] %s", style.Render(bar), FormatHours(hours))
}

// FormatHours prints hours with one decimal, trimming a trailing ".0".
func FormatHours(h float64) string {
	s := fmt.Sprintf("%.1f", h)
	return strings.TrimSuffix(s, ".0") + "h"
}
