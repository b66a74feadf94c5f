package command

import (
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"github.com/joeycumines/snipbox/internal/scripting"
)

// styles renders CLI output. When colour is off text passes through
// untouched.
type styles struct {
	enabled bool
	err     lipgloss.Style
	result  lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
	marker  lipgloss.Style
}

// colorEnabled decides colour for w under mode (auto, always or never).
// Auto honours NO_COLOR and enables colour only on a terminal.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newStyles(enabled bool) styles {
	if !enabled {
		return styles{}
	}
	return styles{
		enabled: true,
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		result:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		marker:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
}

// consoleLine colours a captured console line by its marker.
func (s styles) consoleLine(line string) string {
	switch {
	case strings.HasPrefix(line, scripting.ErrorMarker):
		return s.render(s.err, line)
	case strings.HasPrefix(line, scripting.ResultMarker):
		return s.render(s.result, line)
	}
	return line
}

// render applies st line by line, so multi-line text is not padded into a
// block.
func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = st.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
