package tui

import (
	"context"

	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Client covers the reads the board screen makes outside the coordinator.
type Client interface {
	ListComments(ctx context.Context, cardID string) ([]model.Comment, error)
	ListLabels(ctx context.Context, boardID string) ([]model.Label, error)
}

type Options struct {
	Coordinator *mutate.Coordinator
	Client      Client
	// BoardID opens straight into a board; empty restores the last session or shows the picker.
	BoardID  string
	StateDir string
	Log      *zap.Logger
	// Profile is the configured appearance profile; KANBAN_TUI_PROFILE overrides it.
	Profile     string
	ColumnWidth int
}

func Run(ctx context.Context, opts Options) error {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	applyColorProfilePreference()
	applyThemePreference()
	applyAppearancePreference(opts.Profile)

	st, err := store.LoadTUIState(opts.StateDir)
	if err != nil {
		opts.Log.Warn("tui state unreadable", zap.Error(err))
		st = &store.TUIState{Version: 1}
	}

	events := make(chan mutate.Event, 64)
	unsubscribe := opts.Coordinator.Subscribe(func(ev mutate.Event) {
		select {
		case events <- ev:
		default:
			// The UI refreshes from the store on the next event anyway.
		}
	})
	defer unsubscribe()

	m := newAppModel(ctx, opts, st, events)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok {
		fm.captureState()
		if serr := store.SaveTUIState(opts.StateDir, fm.state); serr != nil {
			opts.Log.Warn("tui state not saved", zap.Error(serr))
		}
	}
	return err
}
