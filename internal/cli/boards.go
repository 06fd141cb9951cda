package cli

import (
	"fmt"

	"kanban-cli/internal/store"

	"github.com/spf13/cobra"
)

func newBoardsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "boards",
		Aliases: []string{"board"},
		Short:   "Board commands",
	}
	cmd.AddCommand(newBoardsListCmd(app))
	cmd.AddCommand(newBoardsCreateCmd(app))
	cmd.AddCommand(newBoardsRenameCmd(app))
	cmd.AddCommand(newBoardsDeleteCmd(app))
	cmd.AddCommand(newBoardsShowCmd(app))
	cmd.AddCommand(newBoardsUseCmd(app))
	return cmd
}

func newBoardsListCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards you own or belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline {
				cache, err := store.DefaultCache()
				if err != nil {
					return writeErr(cmd, err)
				}
				boards, err := cache.ListBoards(cmd.Context())
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeData(cmd, app, boards, map[string]any{"offline": true})
			}
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			boards, err := app.co.ListBoards(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, boards, map[string]any{"currentBoardId": app.cfg.CurrentBoardID})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "List boards from the offline cache")
	return cmd
}

func newBoardsCreateCmd(app *App) *cobra.Command {
	var title string
	var use bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.co.CreateBoard(cmd.Context(), title)
			if err != nil {
				return writeErr(cmd, err)
			}
			if use {
				app.cfg.CurrentBoardID = b.ID
				if err := store.SaveConfig(app.cfg); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeData(cmd, app, b, nil)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Board title")
	cmd.Flags().BoolVar(&use, "use", false, "Make the new board current")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newBoardsRenameCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename [board-id]",
		Short: "Rename a board",
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
			b, err := app.co.UpdateBoard(cmd.Context(), boardID, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, b, nil)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newBoardsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete a board with all its lists and cards (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			boardID := args[0]
			if _, err := app.co.LoadBoard(cmd.Context(), boardID); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.co.DeleteBoard(cmd.Context(), boardID); err != nil {
				return writeErr(cmd, err)
			}
			if app.cfg.CurrentBoardID == boardID {
				app.cfg.CurrentBoardID = ""
				if err := store.SaveConfig(app.cfg); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeData(cmd, app, map[string]any{"id": boardID, "deleted": true}, nil)
		},
	}
}

func newBoardsShowCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "show [board-id]",
		Short: "Show a board with its lists and cards",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := app.boardID(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if offline {
				snap, ok, err := app.co.LoadBoardOffline(cmd.Context(), boardID)
				if err != nil {
					return writeErr(cmd, err)
				}
				if !ok {
					return writeErr(cmd, fmt.Errorf("board %s is not in the offline cache", boardID))
				}
				return writeData(cmd, app, snap, map[string]any{"offline": true, "cachedAt": snap.CachedAt})
			}
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			snap, err := app.co.LoadBoard(cmd.Context(), boardID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, snap, nil)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Read the board from the offline cache")
	return cmd
}

func newBoardsUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <board-id>",
		Short: "Set the current board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			snap, err := app.co.LoadBoard(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			app.cfg.CurrentBoardID = snap.Board.ID
			if err := store.SaveConfig(app.cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, snap.Board, nil)
		},
	}
}

func newMembersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Board membership commands",
	}

	var email string
	invite := &cobra.Command{
		Use:   "invite [board-id]",
		Short: "Invite someone by email (owner only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := app.membershipBoard(cmd, args)
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.co.InviteByEmail(cmd.Context(), boardID, email)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, b, nil)
		},
	}
	invite.Flags().StringVar(&email, "email", "", "Invitee email")
	_ = invite.MarkFlagRequired("email")

	var member string
	remove := &cobra.Command{
		Use:   "remove [board-id]",
		Short: "Remove a member (owner only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := app.membershipBoard(cmd, args)
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.co.RemoveMember(cmd.Context(), boardID, member)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, b, nil)
		},
	}
	remove.Flags().StringVar(&member, "member", "", "Member user id")
	_ = remove.MarkFlagRequired("member")

	leave := &cobra.Command{
		Use:   "leave [board-id]",
		Short: "Leave a board you are a member of",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := app.membershipBoard(cmd, args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.co.LeaveBoard(cmd.Context(), boardID); err != nil {
				return writeErr(cmd, err)
			}
			if app.cfg.CurrentBoardID == boardID {
				app.cfg.CurrentBoardID = ""
				if err := store.SaveConfig(app.cfg); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeData(cmd, app, map[string]any{"id": boardID, "left": true}, nil)
		},
	}

	cmd.AddCommand(invite, remove, leave)
	return cmd
}

// membershipBoard resolves and hydrates the board so local membership rules can run.
func (app *App) membershipBoard(cmd *cobra.Command, args []string) (string, error) {
	if err := app.requireLogin(); err != nil {
		return "", err
	}
	boardID, err := app.boardID(args)
	if err != nil {
		return "", err
	}
	if _, err := app.co.LoadBoard(cmd.Context(), boardID); err != nil {
		return "", err
	}
	return boardID, nil
}

func newInvitationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitations",
		Short: "Pending board invitations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List invitations addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			invs, err := app.co.ListInvitations(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, invs, nil)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "accept <board-id> <invitation-id>",
		Short: "Accept an invitation and load the board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			snap, err := app.co.AcceptInvitation(cmd.Context(), args[0], args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, snap.Board, nil)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reject <board-id> <invitation-id>",
		Short: "Reject an invitation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.co.RejectInvitation(cmd.Context(), args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"id": args[1], "rejected": true}, nil)
		},
	})
	return cmd
}
