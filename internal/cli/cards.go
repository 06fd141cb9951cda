package cli

import (
	"kanban-cli/internal/api"
	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newCardsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Card commands",
	}
	cmd.AddCommand(newCardsCreateCmd(app))
	cmd.AddCommand(newCardsUpdateCmd(app))
	cmd.AddCommand(newCardsDeleteCmd(app))
	cmd.AddCommand(newCardsMoveCmd(app))
	cmd.AddCommand(newCardsShowCmd(app))
	return cmd
}

func newCardsCreateCmd(app *App) *cobra.Command {
	var listID string
	var f api.CardFields
	var due string
	var color string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Append a card to a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			d, err := model.ParseDue(due)
			if err != nil {
				return writeErr(cmd, err)
			}
			f.DueDate = d
			if cmd.Flags().Changed("color") {
				f.Color = &color
			}
			if err := app.loadBoardOf(cmd.Context(), listID, ""); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.co.CreateCard(cmd.Context(), listID, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, c, nil)
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "Target list id")
	cmd.Flags().StringVar(&f.Title, "title", "", "Card title")
	cmd.Flags().StringVar(&f.Description, "description", "", "Card description (markdown)")
	cmd.Flags().StringSliceVar(&f.Labels, "label", nil, "Label id (repeatable)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&color, "color", "", "Card color")
	_ = cmd.MarkFlagRequired("list")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newCardsUpdateCmd(app *App) *cobra.Command {
	var (
		title       string
		description string
		due         string
		clearDue    bool
		color       string
		done        bool
		labels      []string
		assignees   []string
	)

	cmd := &cobra.Command{
		Use:   "update <card-id>",
		Short: "Update card fields (only the flags you pass are sent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			var p api.CardPatch
			fl := cmd.Flags()
			if fl.Changed("title") {
				p.Title = &title
			}
			if fl.Changed("description") {
				p.Description = &description
			}
			if fl.Changed("due") {
				d, err := model.ParseDue(due)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.DueDate = d
				p.ClearDue = d == nil
			}
			if clearDue {
				p.ClearDue = true
				p.DueDate = nil
			}
			if fl.Changed("color") {
				p.Color = &color
			}
			if fl.Changed("done") {
				p.Completed = &done
			}
			if fl.Changed("label") {
				p.Labels = &labels
			}
			if fl.Changed("assignee") {
				p.Assignees = &assignees
			}
			if p.Empty() {
				return writeErr(cmd, mutate.ValidationError{Message: "nothing to update; pass at least one field flag"})
			}
			if err := app.loadBoardOf(cmd.Context(), "", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.co.UpdateCard(cmd.Context(), args[0], p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, c, nil)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC3339; empty clears)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().StringVar(&color, "color", "", "Card color")
	cmd.Flags().BoolVar(&done, "done", false, "Mark completed (--done=false reopens)")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "Replace labels (repeatable)")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "Replace assignees (repeatable)")
	return cmd
}

func newCardsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <card-id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.loadBoardOf(cmd.Context(), "", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.co.DeleteCard(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"id": args[0], "deleted": true}, nil)
		},
	}
}

func newCardsMoveCmd(app *App) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "move <card-id>",
		Short: "Move a card to the end of another list on the same board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.loadBoardOf(cmd.Context(), "", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.co.MoveCard(cmd.Context(), args[0], to)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, c, nil)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target list id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newCardsShowCmd(app *App) *cobra.Command {
	var withComments bool

	cmd := &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show one card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.loadBoardOf(cmd.Context(), "", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, _ := app.co.Store.Card(args[0])
			if !withComments {
				return writeData(cmd, app, c, nil)
			}
			comments, err := app.client.ListComments(cmd.Context(), c.ID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"card": c, "comments": comments}, nil)
		},
	}

	cmd.Flags().BoolVar(&withComments, "comments", false, "Include the comment thread")
	return cmd
}
