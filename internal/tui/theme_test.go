package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestDarkFromColorFGBG(t *testing.T) {
	cases := []struct {
		in       string
		dark, ok bool
	}{
		{"15;0", true, true},
		{"0;15", false, true},
		{"0;default;7", false, true},
		{"15;8", true, true},
		{"", false, false},
		{"garbage", false, false},
	}
	for _, tc := range cases {
		dark, ok := darkFromColorFGBG(tc.in)
		if dark != tc.dark || ok != tc.ok {
			t.Fatalf("darkFromColorFGBG(%q)=(%v,%v), want (%v,%v)", tc.in, dark, ok, tc.dark, tc.ok)
		}
	}
}

func TestAppearanceProfiles_RoundTrip(t *testing.T) {
	oldProfile := lipgloss.ColorProfile()
	t.Cleanup(func() {
		lipgloss.SetColorProfile(oldProfile)
		setAppearanceProfile(appearanceDefault)
	})
	lipgloss.SetColorProfile(termenv.ANSI256)

	for _, id := range knownAppearances {
		if !setAppearanceProfile(id) {
			t.Fatalf("expected known profile %q to apply", id)
		}
		if appearanceProfile() != id {
			t.Fatalf("expected active profile %q, got %q", id, appearanceProfile())
		}
	}
	if setAppearanceProfile("neon-unicorn") {
		t.Fatalf("expected unknown profile to be rejected")
	}
	if appearanceProfile() != appearanceMono {
		t.Fatalf("expected rejected profile to leave the previous one active, got %q", appearanceProfile())
	}
}

func TestRenderMarkdown_PlainOutput(t *testing.T) {
	t.Setenv("KANBAN_TUI_THEME", "dark")
	if got := renderMarkdown("   ", 40); got != "" {
		t.Fatalf("expected blank markdown to render empty, got %q", got)
	}
	out := renderMarkdown("# Plan\n\n- first step", 40)
	if out == "" {
		t.Fatalf("expected rendered markdown")
	}
	if !containsPlain(out, "Plan") || !containsPlain(out, "first step") {
		t.Fatalf("expected heading and list text in rendered markdown, got %q", out)
	}
}
