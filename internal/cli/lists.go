package cli

import (
	"kanban-cli/internal/api"

	"github.com/spf13/cobra"
)

func newListsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "List (column) commands",
	}
	cmd.AddCommand(newListsListCmd(app))
	cmd.AddCommand(newListsCreateCmd(app))
	cmd.AddCommand(newListsRenameCmd(app))
	cmd.AddCommand(newListsDeleteCmd(app))
	cmd.AddCommand(newListsMoveCmd(app))
	return cmd
}

func newListsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [board-id]",
		Short: "List the board's lists in order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			boardID, err := app.boardID(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := app.co.LoadBoard(cmd.Context(), boardID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, snap.Lists, map[string]any{"boardId": boardID})
		},
	}
}

func newListsCreateCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create [board-id]",
		Short: "Append a list to the board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			boardID, err := app.boardID(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := app.co.LoadBoard(cmd.Context(), boardID); err != nil {
				return writeErr(cmd, err)
			}
			l, err := app.co.CreateList(cmd.Context(), boardID, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, l, nil)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "List title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newListsRenameCmd(app *App) *cobra.Command {
	var title string
	var color string

	cmd := &cobra.Command{
		Use:   "rename <list-id>",
		Short: "Rename or recolor a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.loadBoardOf(cmd.Context(), args[0], ""); err != nil {
				return writeErr(cmd, err)
			}
			var patch api.ListPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &color
			}
			l, err := app.co.UpdateList(cmd.Context(), args[0], patch)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, l, nil)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&color, "color", "", "Color (e.g. #aabbcc)")
	cmd.MarkFlagsOneRequired("title", "color")
	return cmd
}

func newListsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list-id>",
		Short: "Delete a list and all its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.loadBoardOf(cmd.Context(), args[0], ""); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.co.DeleteList(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"id": args[0], "deleted": true}, nil)
		},
	}
}

func newListsMoveCmd(app *App) *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "move <list-id>",
		Short: "Move a list to a zero-based index among the board's lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.loadBoardOf(cmd.Context(), args[0], ""); err != nil {
				return writeErr(cmd, err)
			}
			l, err := app.co.MoveList(cmd.Context(), args[0], index)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, l, nil)
		},
	}

	cmd.Flags().IntVar(&index, "to", 0, "Target index (0 = first)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
