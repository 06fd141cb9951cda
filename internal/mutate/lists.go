package mutate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"kanban-cli/internal/api"
	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

// LoadBoard hydrates one board from the backend (board, its lists, each list's cards) and
// swaps the board's whole subtree in the store in one step. Positions are renumbered to
// 0..n-1 in server order, so gaps left by the backend never reach the store.
func (c *Coordinator) LoadBoard(ctx context.Context, boardID string) (store.BoardSnapshot, error) {
	boardID = c.resolve(boardID)
	if boardID == "" {
		return store.BoardSnapshot{}, ValidationError{Field: "boardId", Message: "is required"}
	}

	var snap store.BoardSnapshot
	err := c.remote(ctx, "loadBoard", func(ctx context.Context) error {
		b, err := c.Remote.GetBoard(ctx, boardID)
		if err != nil {
			return err
		}
		if b.ID == "" {
			b.ID = boardID
		}
		lists, err := c.Remote.GetListsByBoard(ctx, boardID)
		if err != nil {
			return err
		}
		for i := range lists {
			lists[i].BoardID = b.ID
		}
		store.SortListsByPosition(lists)
		store.RenumberLists(lists)

		var cards []model.Card
		for _, l := range lists {
			cs, err := c.Remote.GetCardsByList(ctx, l.ID)
			if err != nil {
				return err
			}
			for i := range cs {
				cs[i].ListID = l.ID
			}
			store.SortCardsByPosition(cs)
			store.RenumberCards(cs)
			cards = append(cards, cs...)
		}
		snap = store.BoardSnapshot{Board: b, Lists: lists, Cards: cards, CachedAt: time.Now().UTC()}
		return nil
	})
	if err != nil {
		c.Log.Warn("board load failed", zap.String("board", boardID), zap.Error(err))
		return store.BoardSnapshot{}, err
	}

	snap.Hydrate(c.Store)
	c.Log.Debug("board loaded", zap.String("board", boardID), zap.Int("lists", len(snap.Lists)), zap.Int("cards", len(snap.Cards)))
	if c.Cache != nil {
		if err := c.Cache.SaveBoard(context.Background(), snap); err != nil {
			c.Log.Warn("offline cache write failed", zap.String("board", boardID), zap.Error(err))
		}
	}
	return snap, nil
}

// LoadBoardOffline hydrates the store from the offline cache. ok is false when the board was
// never cached.
func (c *Coordinator) LoadBoardOffline(ctx context.Context, boardID string) (store.BoardSnapshot, bool, error) {
	if c.Cache == nil {
		return store.BoardSnapshot{}, false, nil
	}
	snap, ok, err := c.Cache.LoadBoard(ctx, c.resolve(boardID))
	if err != nil || !ok {
		return store.BoardSnapshot{}, ok, err
	}
	snap.Hydrate(c.Store)
	return snap, true, nil
}

// CreateList appends a list to the board. An empty title is rejected before anything is
// written or sent.
func (c *Coordinator) CreateList(ctx context.Context, boardID, title string) (model.List, error) {
	title, err := c.checkTitle(title)
	if err != nil {
		return model.List{}, err
	}
	boardID = c.resolve(boardID)
	if IsTempID(boardID) {
		return model.List{}, c.unsaved(model.KindBoard, boardID)
	}

	tempID := c.newID()
	unlock := c.locks.lock(store.ListKey(tempID))
	defer unlock()

	var u undo
	var missing bool
	c.Store.Batch(func(tx *store.Tx) {
		if _, ok := tx.Board(boardID); !ok {
			missing = true
			return
		}
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.ListKey(tempID)}}
		now := time.Now().UTC()
		tx.Upsert(model.List{
			ID:        tempID,
			BoardID:   boardID,
			Title:     title,
			Position:  store.AppendPosition(len(tx.ListsForBoard(boardID))),
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if missing {
		return model.List{}, NotFoundError{Kind: "board", ID: boardID}
	}
	ev := Event{Op: "create", Kind: model.KindList, ID: tempID, TempID: tempID}
	c.applied(ev)

	var created model.List
	err = c.remote(ctx, "createList", func(ctx context.Context) error {
		var err error
		created, err = c.Remote.CreateList(ctx, boardID, title)
		return err
	})
	if err != nil {
		return model.List{}, c.fail(u, ev, err)
	}

	if created.BoardID == "" {
		created.BoardID = boardID
	}
	c.Store.Batch(func(tx *store.Tx) {
		tx.Remove(model.KindList, tempID)
		if _, ok := tx.Board(created.BoardID); ok {
			tx.Upsert(created)
		}
	})
	c.alias(tempID, created.ID)
	ev.ID = created.ID
	c.confirm(ev, boardID)
	return created, nil
}

// UpdateList merges patch into the list, then adopts the backend's copy. A position in the
// patch reorders the board's lists around it.
func (c *Coordinator) UpdateList(ctx context.Context, listID string, patch api.ListPatch) (model.List, error) {
	if patch.Title != nil {
		t, err := c.checkTitle(*patch.Title)
		if err != nil {
			return model.List{}, err
		}
		patch.Title = &t
	}
	if err := c.validate.Struct(patch); err != nil {
		return model.List{}, validationFrom(err)
	}

	listID, unlock := c.acquire(model.KindList, listID)
	defer unlock()
	if IsTempID(listID) {
		return model.List{}, c.unsaved(model.KindList, listID)
	}

	cur, ok := c.Store.List(listID)
	if !ok {
		return model.List{}, NotFoundError{Kind: "list", ID: listID}
	}
	if patch.Empty() {
		return cur, nil
	}

	var u undo
	var planErr error
	c.Store.Batch(func(tx *store.Tx) {
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.ListKey(listID)}}
		next, _ := tx.List(listID)
		if patch.Title != nil {
			next.Title = *patch.Title
		}
		if patch.Color != nil {
			col := *patch.Color
			next.Color = &col
		}
		next.UpdatedAt = time.Now().UTC()
		tx.Upsert(next)
		if patch.Position == nil {
			return
		}
		changed, err := store.PlanListInsert(tx.ListsForBoard(next.BoardID), listID, *patch.Position)
		if err != nil {
			planErr = err
			return
		}
		for _, l := range changed {
			tx.Upsert(l)
			if l.ID != listID {
				u.positions = append(u.positions, store.ListKey(l.ID))
			}
		}
	})
	if planErr != nil {
		c.rollback(u)
		return model.List{}, ValidationError{Field: "position", Message: planErr.Error()}
	}
	ev := Event{Op: "update", Kind: model.KindList, ID: listID}
	if patch.Position != nil {
		ev.Op = "move"
	}
	c.applied(ev)

	var updated model.List
	err := c.remote(ctx, "updateList", func(ctx context.Context) error {
		var err error
		updated, err = c.Remote.UpdateList(ctx, cur.BoardID, listID, patch)
		return err
	})
	if err != nil {
		return model.List{}, c.fail(u, ev, err)
	}

	final := c.adoptList(listID, updated, patch.Position != nil)
	c.confirm(ev, final.BoardID)
	return final, nil
}

// adoptList stores the backend's copy of a list. The server wins on every field except the
// position of a list this client just reordered, which keeps the locally renumbered slot.
func (c *Coordinator) adoptList(listID string, server model.List, keepLocalPosition bool) model.List {
	var out model.List
	c.Store.Batch(func(tx *store.Tx) {
		local, ok := tx.List(listID)
		if !ok {
			return
		}
		if server.ID == "" {
			server.ID = listID
		}
		if server.BoardID == "" {
			server.BoardID = local.BoardID
		}
		if keepLocalPosition {
			server.Position = local.Position
		}
		tx.Upsert(server)
		out, _ = tx.List(server.ID)
	})
	return out
}

// MoveList moves a list to index among its board's lists, shifting the others.
func (c *Coordinator) MoveList(ctx context.Context, listID string, index int) (model.List, error) {
	if index < 0 {
		return model.List{}, ValidationError{Field: "position", Message: "must be at least 0"}
	}
	return c.UpdateList(ctx, listID, api.ListPatch{Position: &index})
}

// DeleteList removes the list and its cards, closes the gap among the remaining lists and
// tells the backend. On failure every removed entity comes back.
func (c *Coordinator) DeleteList(ctx context.Context, listID string) error {
	listID, unlockList := c.acquire(model.KindList, listID)
	defer unlockList()
	if IsTempID(listID) {
		return c.unsaved(model.KindList, listID)
	}
	unlockCards := c.locks.lock(cardKeys(c.Store.CardsForList(listID))...)
	defer unlockCards()

	var u undo
	var boardID string
	var found bool
	c.Store.Batch(func(tx *store.Tx) {
		l, ok := tx.List(listID)
		if !ok {
			return
		}
		found = true
		boardID = l.BoardID
		u = undo{snap: tx.Snapshot()}
		removed, _ := tx.Remove(model.KindList, listID)
		u.whole = keysForRemoved(removed)
		for _, sib := range store.RenumberLists(tx.ListsForBoard(boardID)) {
			tx.Upsert(sib)
			u.positions = append(u.positions, store.ListKey(sib.ID))
		}
	})
	if !found {
		return NotFoundError{Kind: "list", ID: listID}
	}
	ev := Event{Op: "delete", Kind: model.KindList, ID: listID}
	c.applied(ev)

	err := c.remote(ctx, "deleteList", func(ctx context.Context) error {
		return c.Remote.DeleteList(ctx, boardID, listID)
	})
	if err != nil {
		return c.fail(u, ev, err)
	}
	c.confirm(ev, boardID)
	return nil
}

// listBoard returns the board id of a stored list.
func (c *Coordinator) listBoard(listID string) (string, bool) {
	l, ok := c.Store.List(strings.TrimSpace(listID))
	if !ok {
		return "", false
	}
	return l.BoardID, true
}
