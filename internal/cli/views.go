package cli

import (
	"fmt"
	"time"

	"kanban-cli/internal/store"
	"kanban-cli/internal/views"

	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "stats [board-id]",
		Short: "Card counts by list, completion and due state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.viewSnapshot(cmd, args, offline)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, views.Stats(snap.Lists, snap.Cards, time.Now()), map[string]any{"boardId": snap.Board.ID})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Read the board from the offline cache")
	return cmd
}

func newCalendarCmd(app *App) *cobra.Command {
	var offline bool
	var month string

	cmd := &cobra.Command{
		Use:   "calendar [board-id]",
		Short: "Cards by due day for one month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := views.ParseMonth(month, time.Now(), time.Local)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("invalid --month %q (want YYYY-MM)", month))
			}
			snap, err := app.viewSnapshot(cmd, args, offline)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, views.Calendar(snap.Cards, m), map[string]any{"boardId": snap.Board.ID})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Read the board from the offline cache")
	return cmd
}

func newTableCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "table [board-id]",
		Short: "All cards as rows ordered by due date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.viewSnapshot(cmd, args, offline)
			if err != nil {
				return writeErr(cmd, err)
			}
			rows := views.Table(snap.Cards, snap.Lists)
			return writeData(cmd, app, rows, map[string]any{"boardId": snap.Board.ID, "returned": len(rows)})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Read the board from the offline cache")
	return cmd
}

// viewSnapshot loads the board from the backend, or from the offline cache when asked.
func (app *App) viewSnapshot(cmd *cobra.Command, args []string, offline bool) (store.BoardSnapshot, error) {
	boardID, err := app.boardID(args)
	if err != nil {
		return store.BoardSnapshot{}, err
	}
	if offline {
		snap, ok, err := app.co.LoadBoardOffline(cmd.Context(), boardID)
		if err != nil {
			return store.BoardSnapshot{}, err
		}
		if !ok {
			return store.BoardSnapshot{}, fmt.Errorf("board %s is not in the offline cache", boardID)
		}
		return snap, nil
	}
	if err := app.requireLogin(); err != nil {
		return store.BoardSnapshot{}, err
	}
	return app.co.LoadBoard(cmd.Context(), boardID)
}
