package cli

import (
	"kanban-cli/internal/api"
	"kanban-cli/internal/validation"

	"github.com/spf13/cobra"
)

func newSearchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Full-text search over boards and cards",
	}

	var q api.SearchQuery
	addPaging := func(c *cobra.Command) {
		c.Flags().StringVarP(&q.Query, "query", "q", "", "Search text")
		c.Flags().IntVar(&q.Limit, "limit", 20, "Max results (1-100)")
		c.Flags().IntVar(&q.Offset, "offset", 0, "Result offset")
		_ = c.MarkFlagRequired("query")
	}

	boards := &cobra.Command{
		Use:   "boards",
		Short: "Search board titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := validation.Default().Struct(q); err != nil {
				return writeErr(cmd, err)
			}
			page, err := app.client.SearchBoards(cmd.Context(), q)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, page.Boards, pageMeta(page.Total, page.Limit, page.Offset, len(page.Boards)))
		},
	}
	addPaging(boards)

	cards := &cobra.Command{
		Use:   "cards",
		Short: "Search card titles and descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := validation.Default().Struct(q); err != nil {
				return writeErr(cmd, err)
			}
			page, err := app.client.SearchCards(cmd.Context(), q)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, page.Cards, pageMeta(page.Total, page.Limit, page.Offset, len(page.Cards)))
		},
	}
	addPaging(cards)
	cards.Flags().StringVar(&q.BoardID, "in-board", "", "Restrict to one board")
	cards.Flags().StringVar(&q.ListID, "in-list", "", "Restrict to one list")

	cmd.AddCommand(boards, cards)
	return cmd
}

func pageMeta(total, limit, offset, returned int) map[string]any {
	return map[string]any{
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"returned": returned,
	}
}
