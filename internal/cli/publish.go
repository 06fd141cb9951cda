package cli

import (
	"context"
	"fmt"
	"strings"

	"kanban-cli/internal/model"
	"kanban-cli/internal/publish"

	"github.com/spf13/cobra"
)

func newPublishCmd(app *App) *cobra.Command {
	var toDir string
	var overwrite bool
	var includeCompleted bool
	var withComments bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Export boards and cards as Markdown files (derived, not synced back)",
	}

	boardCmd := &cobra.Command{
		Use:   "board [board-id]",
		Short: "Publish a board index plus one page per card",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := app.boardID(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			snap, err := app.co.LoadBoard(cmd.Context(), boardID)
			if err != nil {
				return writeErr(cmd, err)
			}
			opt, err := app.renderOptions(cmd.Context(), snap.Board.ID, snap.Cards, withComments)
			if err != nil {
				return writeErr(cmd, err)
			}
			opt.IncludeCompleted = includeCompleted
			res, err := publish.WriteBoard(snap, toDir, publish.WriteOptions{RenderOptions: opt, Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, res, map[string]any{"board": snap.Board.ID})
		},
	}

	cardCmd := &cobra.Command{
		Use:   "card <card-id>",
		Short: "Publish a single card page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			cardID := strings.TrimSpace(args[0])
			if err := app.loadBoardOf(cmd.Context(), "", cardID); err != nil {
				return writeErr(cmd, err)
			}
			card, _ := app.co.Store.Card(cardID)
			boardID, _ := app.co.Store.BoardIDForCard(cardID)
			opt, err := app.renderOptions(cmd.Context(), boardID, []model.Card{card}, withComments)
			if err != nil {
				return writeErr(cmd, err)
			}
			listTitle := ""
			if l, ok := app.co.Store.List(card.ListID); ok {
				listTitle = l.Title
			}
			res, err := publish.WriteCard(card, listTitle, toDir, publish.WriteOptions{RenderOptions: opt, Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, res, nil)
		},
	}

	for _, c := range []*cobra.Command{boardCmd, cardCmd} {
		c.Flags().StringVar(&toDir, "to", "", "Output directory")
		c.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
		c.Flags().BoolVar(&withComments, "comments", false, "Include comment threads (one request per card)")
		_ = c.MarkFlagRequired("to")
	}
	boardCmd.Flags().BoolVar(&includeCompleted, "include-completed", false, "Include completed cards")

	cmd.AddCommand(boardCmd, cardCmd)
	return cmd
}

// renderOptions resolves label titles for the board and, when asked, the comment threads
// of cards.
func (app *App) renderOptions(ctx context.Context, boardID string, cards []model.Card, withComments bool) (publish.RenderOptions, error) {
	opt := publish.RenderOptions{Labels: map[string]string{}}
	labels, err := app.client.ListLabels(ctx, boardID)
	if err != nil {
		return opt, fmt.Errorf("list labels: %w", err)
	}
	for _, l := range labels {
		opt.Labels[l.ID] = l.Title
	}
	if !withComments {
		return opt, nil
	}
	opt.Comments = make(map[string][]model.Comment, len(cards))
	for _, c := range cards {
		cs, err := app.client.ListComments(ctx, c.ID)
		if err != nil {
			return opt, fmt.Errorf("comments for %s: %w", c.ID, err)
		}
		opt.Comments[c.ID] = cs
	}
	return opt, nil
}
