package cli

import (
	"kanban-cli/internal/api"
	"kanban-cli/internal/validation"

	"github.com/spf13/cobra"
)

func newLabelsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Board label commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [board-id]",
		Short: "List the board's labels",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			boardID, err := app.boardID(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			labels, err := app.client.ListLabels(cmd.Context(), boardID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, labels, map[string]any{"boardId": boardID})
		},
	})

	var create api.LabelFields
	createCmd := &cobra.Command{
		Use:   "create [board-id]",
		Short: "Create a label",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			boardID, err := app.boardID(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := validation.Default().Struct(create); err != nil {
				return writeErr(cmd, err)
			}
			l, err := app.client.CreateLabel(cmd.Context(), boardID, create)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, l, nil)
		},
	}
	createCmd.Flags().StringVar(&create.Title, "title", "", "Label title")
	createCmd.Flags().StringVar(&create.Color, "color", "", "Label color (#rrggbb)")
	_ = createCmd.MarkFlagRequired("title")

	var update api.LabelFields
	updateCmd := &cobra.Command{
		Use:   "update <label-id>",
		Short: "Rename or recolor a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			l, err := app.client.UpdateLabel(cmd.Context(), args[0], update)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, l, nil)
		},
	}
	updateCmd.Flags().StringVar(&update.Title, "title", "", "New title")
	updateCmd.Flags().StringVar(&update.Color, "color", "", "New color")
	updateCmd.MarkFlagsOneRequired("title", "color")

	deleteCmd := &cobra.Command{
		Use:   "delete <label-id>",
		Short: "Delete a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.client.DeleteLabel(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"id": args[0], "deleted": true}, nil)
		},
	}

	attachCmd := &cobra.Command{
		Use:   "attach <card-id> <label-id>",
		Short: "Attach a label to a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.toggleLabel(cmd, args[0], args[1], true)
		},
	}
	detachCmd := &cobra.Command{
		Use:   "detach <card-id> <label-id>",
		Short: "Detach a label from a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.toggleLabel(cmd, args[0], args[1], false)
		},
	}

	cmd.AddCommand(createCmd, updateCmd, deleteCmd, attachCmd, detachCmd)
	return cmd
}

// toggleLabel goes through the coordinator so the card's local label set stays in step.
func (app *App) toggleLabel(cmd *cobra.Command, cardID, labelID string, attach bool) error {
	if err := app.requireLogin(); err != nil {
		return writeErr(cmd, err)
	}
	if err := app.loadBoardOf(cmd.Context(), "", cardID); err != nil {
		return writeErr(cmd, err)
	}
	card, _ := app.co.Store.Card(cardID)
	labels := make([]string, 0, len(card.Labels)+1)
	found := false
	for _, id := range card.Labels {
		if id == labelID {
			found = true
			if !attach {
				continue
			}
		}
		labels = append(labels, id)
	}
	if attach && !found {
		labels = append(labels, labelID)
	}
	if attach == found {
		return writeData(cmd, app, card, map[string]any{"unchanged": true})
	}
	c, err := app.co.UpdateCard(cmd.Context(), cardID, api.CardPatch{Labels: &labels})
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeData(cmd, app, c, nil)
}
