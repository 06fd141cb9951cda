package tui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type appearanceProfileID string

const (
	appearanceDefault   appearanceProfileID = "default"
	appearanceDracula   appearanceProfileID = "dracula"
	appearanceSolarized appearanceProfileID = "solarized"
	appearanceMono      appearanceProfileID = "mono"
)

var knownAppearances = []appearanceProfileID{appearanceDefault, appearanceDracula, appearanceSolarized, appearanceMono}

var (
	appearanceMu      sync.Mutex
	currentAppearance = appearanceDefault
)

// applyAppearancePreference selects the profile from KANBAN_TUI_PROFILE, then the
// configured one, then the default.
func applyAppearancePreference(configured string) {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("KANBAN_TUI_PROFILE"))); v != "" {
		if setAppearanceProfile(appearanceProfileID(v)) {
			return
		}
	}
	if v := strings.ToLower(strings.TrimSpace(configured)); v != "" {
		if setAppearanceProfile(appearanceProfileID(v)) {
			return
		}
	}
	setAppearanceProfile(appearanceDefault)
}

// setAppearanceProfile swaps the active palette. Unknown ids are ignored.
func setAppearanceProfile(id appearanceProfileID) bool {
	appearanceMu.Lock()
	defer appearanceMu.Unlock()

	switch id {
	case appearanceDefault:
		colors = defaultPalette
	case appearanceDracula:
		colors = palette{
			Muted:        ac("#6272a4", "#6272a4"),
			ChromeMuted:  ac("#44475a", "#bfbfbf"),
			SurfaceFg:    ac("#282a36", "#f8f8f2"),
			ControlBg:    ac("#f8f8f2", "#21222c"),
			SelectedBg:   ac("#e6e6f0", "#44475a"),
			SelectedFg:   ac("#282a36", "#f8f8f2"),
			Accent:       ac("#7c4dff", "#bd93f9"),
			AccentFg:     ac("#ffffff", "#282a36"),
			Overdue:      ac("#d32f2f", "#ff5555"),
			DueSoon:      ac("#b26a00", "#ffb86c"),
			Done:         ac("#2e7d32", "#50fa7b"),
			FlashErrorBg: ac("#ff5555", "#ff5555"),
		}
	case appearanceSolarized:
		colors = palette{
			Muted:        ac("#93a1a1", "#586e75"),
			ChromeMuted:  ac("#657b83", "#839496"),
			SurfaceFg:    ac("#586e75", "#93a1a1"),
			ControlBg:    ac("#eee8d5", "#073642"),
			SelectedBg:   ac("#eee8d5", "#073642"),
			SelectedFg:   ac("#073642", "#eee8d5"),
			Accent:       ac("#268bd2", "#268bd2"),
			AccentFg:     ac("#fdf6e3", "#002b36"),
			Overdue:      ac("#dc322f", "#dc322f"),
			DueSoon:      ac("#b58900", "#b58900"),
			Done:         ac("#859900", "#859900"),
			FlashErrorBg: ac("#dc322f", "#dc322f"),
		}
	case appearanceMono:
		colors = defaultPalette
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		return false
	}
	currentAppearance = id
	return true
}

func appearanceProfile() appearanceProfileID {
	appearanceMu.Lock()
	defer appearanceMu.Unlock()
	return currentAppearance
}

// dueStyle colors a due label by its state ("overdue", "soon" or "").
func dueStyle(state string) lipgloss.Style {
	switch state {
	case "overdue":
		return lipgloss.NewStyle().Foreground(colors.Overdue).Bold(true)
	case "soon":
		return lipgloss.NewStyle().Foreground(colors.DueSoon)
	default:
		return lipgloss.NewStyle().Foreground(colors.ChromeMuted)
	}
}

func metaStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.ChromeMuted)
}
