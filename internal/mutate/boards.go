package mutate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"kanban-cli/internal/model"
	"kanban-cli/internal/perm"
	"kanban-cli/internal/store"
)

// ListBoards fetches the boards visible to the signed-in user and upserts their headers.
// Lists and cards are only loaded by LoadBoard.
func (c *Coordinator) ListBoards(ctx context.Context) ([]model.Board, error) {
	var boards []model.Board
	err := c.remote(ctx, "listBoards", func(ctx context.Context) error {
		var err error
		boards, err = c.Remote.ListBoards(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.Store.Batch(func(tx *store.Tx) {
		for _, b := range boards {
			tx.Upsert(b)
		}
	})
	return c.Store.Boards(), nil
}

func (c *Coordinator) CreateBoard(ctx context.Context, title string) (model.Board, error) {
	title, err := c.checkTitle(title)
	if err != nil {
		return model.Board{}, err
	}
	tempID := c.newID()
	unlock := c.locks.lock(store.BoardKey(tempID))
	defer unlock()

	var u undo
	c.Store.Batch(func(tx *store.Tx) {
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.BoardKey(tempID)}}
		now := time.Now().UTC()
		b := model.Board{ID: tempID, Title: title, Owner: c.actor(), CreatedAt: now, UpdatedAt: now}
		tx.Upsert(b)
	})
	ev := Event{Op: "create", Kind: model.KindBoard, ID: tempID, TempID: tempID}
	c.applied(ev)

	var created model.Board
	err = c.remote(ctx, "createBoard", func(ctx context.Context) error {
		var err error
		created, err = c.Remote.CreateBoard(ctx, title)
		return err
	})
	if err != nil {
		return model.Board{}, c.fail(u, ev, err)
	}
	c.Store.Batch(func(tx *store.Tx) {
		tx.Remove(model.KindBoard, tempID)
		tx.Upsert(created)
	})
	c.alias(tempID, created.ID)
	ev.ID = created.ID
	c.confirm(ev, created.ID)
	return created, nil
}

// UpdateBoard renames the board.
func (c *Coordinator) UpdateBoard(ctx context.Context, boardID, title string) (model.Board, error) {
	title, err := c.checkTitle(title)
	if err != nil {
		return model.Board{}, err
	}
	boardID, unlock := c.acquire(model.KindBoard, boardID)
	defer unlock()
	if IsTempID(boardID) {
		return model.Board{}, c.unsaved(model.KindBoard, boardID)
	}
	cur, ok := c.Store.Board(boardID)
	if !ok {
		return model.Board{}, NotFoundError{Kind: "board", ID: boardID}
	}
	if a := c.actor(); a != "" && !perm.CanEditBoard(cur, a) {
		return model.Board{}, PermissionError{Action: "rename the board", ActorID: a, BoardID: boardID}
	}

	var u undo
	c.Store.Batch(func(tx *store.Tx) {
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.BoardKey(boardID)}}
		next, _ := tx.Board(boardID)
		next.Title = title
		next.UpdatedAt = time.Now().UTC()
		tx.Upsert(next)
	})
	ev := Event{Op: "update", Kind: model.KindBoard, ID: boardID}
	c.applied(ev)

	var updated model.Board
	err = c.remote(ctx, "updateBoard", func(ctx context.Context) error {
		var err error
		updated, err = c.Remote.UpdateBoard(ctx, boardID, title)
		return err
	})
	if err != nil {
		return model.Board{}, c.fail(u, ev, err)
	}
	final := c.adoptBoard(boardID, updated)
	c.confirm(ev, boardID)
	return final, nil
}

func (c *Coordinator) adoptBoard(boardID string, server model.Board) model.Board {
	if server.ID == "" {
		server.ID = boardID
	}
	var out model.Board
	c.Store.Batch(func(tx *store.Tx) {
		if _, ok := tx.Board(boardID); !ok {
			return
		}
		tx.Upsert(server)
		out, _ = tx.Board(server.ID)
	})
	return out
}

// DeleteBoard removes the board with all its lists and cards. Only the owner may.
func (c *Coordinator) DeleteBoard(ctx context.Context, boardID string) error {
	boardID, unlock := c.acquire(model.KindBoard, boardID)
	defer unlock()
	if IsTempID(boardID) {
		return c.unsaved(model.KindBoard, boardID)
	}
	cur, ok := c.Store.Board(boardID)
	if ok {
		if a := c.actor(); a != "" && !perm.CanDeleteBoard(cur, a) {
			return PermissionError{Action: "delete the board", ActorID: a, BoardID: boardID}
		}
	}

	var u undo
	c.Store.Batch(func(tx *store.Tx) {
		u = undo{snap: tx.Snapshot()}
		removed, _ := tx.Remove(model.KindBoard, boardID)
		u.whole = keysForRemoved(removed)
	})
	ev := Event{Op: "delete", Kind: model.KindBoard, ID: boardID}
	known := len(u.whole) > 0
	if known {
		c.applied(ev)
	}

	err := c.remote(ctx, "deleteBoard", func(ctx context.Context) error {
		return c.Remote.DeleteBoard(ctx, boardID)
	})
	if err != nil {
		if known {
			return c.fail(u, ev, err)
		}
		return err
	}
	c.forget(boardID)
	ev.Phase = PhaseConfirmed
	c.emit(ev)
	return nil
}

// forget drops a board from the offline cache.
func (c *Coordinator) forget(boardID string) {
	if c.Cache == nil {
		return
	}
	if err := c.Cache.DeleteBoard(context.Background(), boardID); err != nil {
		c.Log.Warn("offline cache delete failed", zap.String("board", boardID), zap.Error(err))
	}
}

// InviteByEmail sends an invitation. Only the owner may invite.
func (c *Coordinator) InviteByEmail(ctx context.Context, boardID, email string) (model.Board, error) {
	email = strings.TrimSpace(email)
	if err := c.validate.Var("email", email, "required,email"); err != nil {
		return model.Board{}, validationFrom(err)
	}
	boardID, unlock := c.acquire(model.KindBoard, boardID)
	defer unlock()
	if cur, ok := c.Store.Board(boardID); ok {
		if a := c.actor(); a != "" && !perm.CanInvite(cur, a) {
			return model.Board{}, PermissionError{Action: "invite members", ActorID: a, BoardID: boardID}
		}
	}

	var b model.Board
	err := c.remote(ctx, "inviteByEmail", func(ctx context.Context) error {
		var err error
		b, err = c.Remote.InviteByEmail(ctx, boardID, email)
		return err
	})
	if err != nil {
		return model.Board{}, err
	}
	return c.adoptBoard(boardID, b), nil
}

// RemoveMember drops memberID from the board. The owner can never be removed, and only the
// owner removes someone other than themself.
func (c *Coordinator) RemoveMember(ctx context.Context, boardID, memberID string) (model.Board, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return model.Board{}, ValidationError{Field: "memberId", Message: "is required"}
	}
	return c.dropMember(ctx, boardID, memberID, false)
}

// LeaveBoard removes the signed-in user from the board and drops the board locally.
func (c *Coordinator) LeaveBoard(ctx context.Context, boardID string) error {
	_, err := c.dropMember(ctx, boardID, c.actor(), true)
	return err
}

func (c *Coordinator) dropMember(ctx context.Context, boardID, memberID string, leave bool) (model.Board, error) {
	boardID, unlock := c.acquire(model.KindBoard, boardID)
	defer unlock()
	if IsTempID(boardID) {
		return model.Board{}, c.unsaved(model.KindBoard, boardID)
	}
	actor := c.actor()
	action := "remove members"
	if leave {
		action = "leave the board"
	}
	cur, known := c.Store.Board(boardID)
	if known && actor != "" && memberID != "" && !perm.CanRemoveMember(cur, actor, memberID) {
		return model.Board{}, PermissionError{Action: action, ActorID: actor, BoardID: boardID}
	}

	var u undo
	ev := Event{Op: "removeMember", Kind: model.KindBoard, ID: boardID}
	if known {
		c.Store.Batch(func(tx *store.Tx) {
			u = undo{snap: tx.Snapshot()}
			if leave {
				removed, _ := tx.Remove(model.KindBoard, boardID)
				u.whole = keysForRemoved(removed)
				return
			}
			u.whole = []store.Key{store.BoardKey(boardID)}
			next, _ := tx.Board(boardID)
			next.Members = perm.WithoutMember(next, memberID)
			tx.Upsert(next)
		})
		if leave {
			ev.Op = "leave"
		}
		c.applied(ev)
	}

	var b model.Board
	err := c.remote(ctx, ev.Op, func(ctx context.Context) error {
		var err error
		if leave {
			b, err = c.Remote.LeaveBoard(ctx, boardID)
		} else {
			b, err = c.Remote.RemoveMember(ctx, boardID, memberID)
		}
		return err
	})
	if err != nil {
		if known {
			return model.Board{}, c.fail(u, ev, err)
		}
		return model.Board{}, err
	}
	if leave {
		c.forget(boardID)
		ev.Phase = PhaseConfirmed
		c.emit(ev)
		return b, nil
	}
	final := c.adoptBoard(boardID, b)
	c.confirm(ev, boardID)
	return final, nil
}

func (c *Coordinator) ListInvitations(ctx context.Context) ([]model.Invitation, error) {
	var invs []model.Invitation
	err := c.remote(ctx, "listInvitations", func(ctx context.Context) error {
		var err error
		invs, err = c.Remote.ListInvitations(ctx)
		return err
	})
	return invs, err
}

// AcceptInvitation joins the board and hydrates it.
func (c *Coordinator) AcceptInvitation(ctx context.Context, boardID, invitationID string) (store.BoardSnapshot, error) {
	err := c.remote(ctx, "acceptInvitation", func(ctx context.Context) error {
		return c.Remote.AcceptInvitation(ctx, boardID, invitationID)
	})
	if err != nil {
		return store.BoardSnapshot{}, err
	}
	return c.LoadBoard(ctx, boardID)
}

func (c *Coordinator) RejectInvitation(ctx context.Context, boardID, invitationID string) error {
	return c.remote(ctx, "rejectInvitation", func(ctx context.Context) error {
		return c.Remote.RejectInvitation(ctx, boardID, invitationID)
	})
}
