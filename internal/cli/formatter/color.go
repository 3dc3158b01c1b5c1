package formatter

import (
	"fmt"
	"strings"

	"github.com/NotNullDev/nanomgmt/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusStyle returns the style a task status is rendered in.
func StatusStyle(s domain.TaskStatus) lipgloss.Style {
	switch s {
	case domain.TaskAccepted:
		return StyleGreen
	case domain.TaskRejected:
		return StyleRed
	case domain.TaskNone:
		return StyleYellow
	default:
		return StyleDim
	}
}

// StatusPill returns a colored indicator such as "✔ accepted".
func StatusPill(s domain.TaskStatus) string {
	switch s {
	case domain.TaskAccepted:
		return StyleGreen.Render("✔ accepted")
	case domain.TaskRejected:
		return StyleRed.Render("✖ rejected")
	case domain.TaskNone:
		return StyleYellow.Render("○ pending")
	case "":
		return StyleDim.Render("any")
	default:
		return StyleDim.Render(string(s))
	}
}

// SortArrow renders a sort direction as a column header suffix.
func SortArrow(d domain.SortDirection) string {
	switch d {
	case domain.SortAsc:
		return " ▲"
	case domain.SortDesc:
		return " ▼"
	default:
		return ""
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
