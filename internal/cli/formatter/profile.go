package formatter

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConfigureColor picks the lipgloss color profile for output written to w.
// NO_COLOR and non-terminal writers get plain text; CLICOLOR_FORCE is
// honored through termenv's environment lookup.
func ConfigureColor(w io.Writer) termenv.Profile {
	profile := colorProfile(w)
	lipgloss.SetColorProfile(profile)
	return profile
}

func colorProfile(w io.Writer) termenv.Profile {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return termenv.Ascii
	}
	if !IsTerminal(w) {
		if os.Getenv("CLICOLOR_FORCE") != "" && os.Getenv("CLICOLOR_FORCE") != "0" {
			return termenv.EnvColorProfile()
		}
		return termenv.Ascii
	}
	profile := termenv.EnvColorProfile()
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	if profile != termenv.Ascii && (strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit")) {
		profile = termenv.TrueColor
	}
	return profile
}
