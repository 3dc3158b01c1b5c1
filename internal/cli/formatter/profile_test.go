package formatter

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestColorProfile_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, colorProfile(&bytes.Buffer{}))
}

func TestColorProfile_PipeIsPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "")
	assert.Equal(t, termenv.Ascii, colorProfile(&bytes.Buffer{}))
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
