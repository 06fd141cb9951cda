package cli

import (
	"sort"
	"strconv"
	"strings"

	"kanban-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newCommentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Card comment commands",
	}
	cmd.AddCommand(newCommentsAddCmd(app))
	cmd.AddCommand(newCommentsListCmd(app))
	cmd.AddCommand(newCommentsEditCmd(app))
	cmd.AddCommand(newCommentsDeleteCmd(app))
	return cmd
}

func newCommentsAddCmd(app *App) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "add <card-id>",
		Short: "Add a comment to a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			body = strings.TrimSpace(body)
			if body == "" {
				return writeErr(cmd, mutate.ValidationError{Field: "body", Message: "is required"})
			}
			c, err := app.client.CreateComment(cmd.Context(), args[0], body)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, c, nil)
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Comment body (markdown)")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommentsListCmd(app *App) *cobra.Command {
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list <card-id>",
		Short: "List comments for a card, oldest first (paginated)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			cardID := args[0]
			all, err := app.client.ListComments(cmd.Context(), cardID)
			if err != nil {
				return writeErr(cmd, err)
			}
			sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

			total := len(all)
			if offset < 0 {
				offset = 0
			}
			if offset > total {
				offset = total
			}
			end := total
			if limit > 0 && offset+limit < end {
				end = offset + limit
			}
			out := all[offset:end]

			meta := map[string]any{
				"total":    total,
				"limit":    limit,
				"offset":   offset,
				"returned": len(out),
			}
			if end < total {
				meta["next"] = "kanban comments list " + cardID + " --limit " + strconv.Itoa(limit) + " --offset " + strconv.Itoa(end)
			}
			return writeData(cmd, app, out, meta)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max comments to return (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset into the comment list")
	return cmd
}

func newCommentsEditCmd(app *App) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "edit <comment-id>",
		Short: "Replace a comment's body (author only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.client.UpdateComment(cmd.Context(), args[0], strings.TrimSpace(body))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, c, nil)
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "New body")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommentsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete a comment (author only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.client.DeleteComment(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"id": args[0], "deleted": true}, nil)
		},
	}
}
