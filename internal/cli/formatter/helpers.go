package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		inner := titleRendered + "\n\n" + content
		return boxStyle.Render(inner)
	}

	return boxStyle.Render(content)
}

// DayLabel names a task day relative to now for the last two weeks and
// falls back to the plain YYYY-MM-DD day key.
func DayLabel(t, now time.Time) string {
	days := int(math.Round(domain.StartOfDay(now).Sub(domain.StartOfDay(t)).Hours() / 24))
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 14:
		return fmt.Sprintf("%dd ago", days)
	default:
		return domain.DayKey(t)
	}
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// OrDash renders an empty value as a dim "--".
func OrDash(s string) string {
	if s == "" {
		return StyleDim.Render("--")
	}
	return s
}
