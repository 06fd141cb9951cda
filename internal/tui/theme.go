package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// The TUI must stay readable on light and dark backgrounds: colors are adaptive and
// "faint" is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

type palette struct {
	Muted        lipgloss.AdaptiveColor
	ChromeMuted  lipgloss.AdaptiveColor
	SurfaceFg    lipgloss.AdaptiveColor
	ControlBg    lipgloss.AdaptiveColor
	SelectedBg   lipgloss.AdaptiveColor
	SelectedFg   lipgloss.AdaptiveColor
	Accent       lipgloss.AdaptiveColor
	AccentFg     lipgloss.AdaptiveColor
	Overdue      lipgloss.AdaptiveColor
	DueSoon      lipgloss.AdaptiveColor
	Done         lipgloss.AdaptiveColor
	FlashErrorBg lipgloss.AdaptiveColor
}

var defaultPalette = palette{
	Muted:        ac("240", "243"),
	ChromeMuted:  ac("240", "245"),
	SurfaceFg:    ac("235", "252"),
	ControlBg:    ac("252", "235"),
	SelectedBg:   ac("#e9e9e9", "#262626"),
	SelectedFg:   ac("235", "255"),
	Accent:       ac("27", "62"),
	AccentFg:     ac("255", "235"),
	Overdue:      ac("160", "203"),
	DueSoon:      ac("130", "214"),
	Done:         ac("28", "114"),
	FlashErrorBg: ac("196", "160"),
}

// colors is the active palette; appearance profiles replace it.
var colors = defaultPalette

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colors.Muted))
}

// applyColorProfilePreference picks Lip Gloss's color profile. Only NO_COLOR is honored
// from the environment; CLICOLOR can disable colors in a TUI by accident.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()

	// Trust TERM/COLORTERM when they claim more than the detector reports.
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && (profile == termenv.Ascii || profile == termenv.ANSI) {
		profile = termenv.ANSI256
	}

	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection.
//
// Priority:
// 1) KANBAN_TUI_THEME=light|dark|auto
// 2) COLORFGBG heuristic ("fg;bg", e.g. "15;0")
// 3) termenv's own query
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("KANBAN_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}

	if dark, ok := darkFromColorFGBG(os.Getenv("COLORFGBG")); ok {
		lipgloss.SetHasDarkBackground(dark)
		return
	}
	lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
}

func darkFromColorFGBG(v string) (dark bool, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return false, false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return false, false
	}
	// xterm palette: 0-6 and 8 are dark, 7 and 9-15 light.
	return bg < 7 || bg == 8, true
}
