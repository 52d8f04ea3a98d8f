package report

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title     *color.Color
	Rule      *color.Color
	Header    *color.Color
	CaseName  *color.Color
	Value     *color.Color
	Fast      *color.Color
	Slow      *color.Color
	Highlight *color.Color
	Error     *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	scheme := &ColorScheme{
		Title:     color.New(color.Bold),
		Rule:      color.New(color.FgCyan),
		Header:    color.New(color.FgYellow),
		CaseName:  color.New(color.FgBlue, color.Bold),
		Value:     color.New(color.FgWhite),
		Fast:      color.New(color.FgGreen, color.Bold),
		Slow:      color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
		Error:     color.New(color.FgRed),
	}
	for _, c := range scheme.all() {
		c.EnableColor()
	}
	return scheme
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{
		s.Title, s.Rule, s.Header, s.CaseName, s.Value,
		s.Fast, s.Slow, s.Highlight, s.Error,
	}
}

// SchemeFor picks a scheme for w: colors only when w is a terminal, NO_COLOR
// is unset and the caller did not disable them.
func SchemeFor(w io.Writer, noColor bool) *ColorScheme {
	if noColor || !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
		if os.Getenv("FORCE_COLOR") != "" && !noColor {
			return DefaultColorScheme()
		}
		return NoColorScheme()
	}
	return DefaultColorScheme()
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
