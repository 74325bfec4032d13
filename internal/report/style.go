package report

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"tmcheck/internal/errs"
)

// ColorMode selects when the report is coloured.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses a --color value.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", errs.Configuration("invalid color mode %q (want auto, always or never)", s)
	}
}

// profile resolves mode against the destination writer. Auto colours only a
// terminal and honours NO_COLOR.
func profile(mode ColorMode, w io.Writer) termenv.Profile {
	switch mode {
	case ColorAlways:
		return termenv.ANSI
	case ColorNever:
		return termenv.Ascii
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return termenv.Ascii
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return termenv.Ascii
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return termenv.ANSI
	}
	return termenv.Ascii
}

// styles holds the report's lipgloss styles. Under the Ascii profile they
// render text unchanged.
type styles struct {
	path     lipgloss.Style
	fail     lipgloss.Style
	pass     lipgloss.Style
	expected lipgloss.Style
	actual   lipgloss.Style
	hunk     lipgloss.Style
	muted    lipgloss.Style
}

func newStyles(mode ColorMode, w io.Writer) styles {
	if w == nil {
		w = io.Discard
	}
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile(mode, w))
	return styles{
		path:     r.NewStyle().Bold(true),
		fail:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		pass:     r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		expected: r.NewStyle().Foreground(lipgloss.Color("1")),
		actual:   r.NewStyle().Foreground(lipgloss.Color("2")),
		hunk:     r.NewStyle().Foreground(lipgloss.Color("6")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}
