package mutate

import (
	"context"
	"time"

	"kanban-cli/internal/api"
	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

// CreateCard appends a card to the list. An empty title is rejected before anything is
// written or sent.
func (c *Coordinator) CreateCard(ctx context.Context, listID string, fields api.CardFields) (model.Card, error) {
	title, err := c.checkTitle(fields.Title)
	if err != nil {
		return model.Card{}, err
	}
	fields.Title = title
	fields.Labels = model.IDSet(fields.Labels)
	if err := c.validate.Struct(fields); err != nil {
		return model.Card{}, validationFrom(err)
	}
	listID = c.resolve(listID)
	if IsTempID(listID) {
		return model.Card{}, c.unsaved(model.KindList, listID)
	}

	tempID := c.newID()
	unlock := c.locks.lock(store.CardKey(tempID))
	defer unlock()

	var u undo
	var boardID string
	var missing bool
	c.Store.Batch(func(tx *store.Tx) {
		l, ok := tx.List(listID)
		if !ok {
			missing = true
			return
		}
		boardID = l.BoardID
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.CardKey(tempID)}}
		now := time.Now().UTC()
		card := model.Card{
			ID:          tempID,
			ListID:      listID,
			Title:       title,
			Description: fields.Description,
			Position:    store.AppendPosition(len(tx.CardsForList(listID))),
			CreatedBy:   c.actor(),
			Labels:      fields.Labels,
			Color:       fields.Color,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if fields.DueDate != nil {
			d := fields.DueDate.UTC()
			card.DueDate = &d
		}
		tx.Upsert(card)
	})
	if missing {
		return model.Card{}, NotFoundError{Kind: "list", ID: listID}
	}
	ev := Event{Op: "create", Kind: model.KindCard, ID: tempID, TempID: tempID}
	c.applied(ev)

	var created model.Card
	err = c.remote(ctx, "createCard", func(ctx context.Context) error {
		var err error
		created, err = c.Remote.CreateCard(ctx, boardID, listID, fields)
		return err
	})
	if err != nil {
		return model.Card{}, c.fail(u, ev, err)
	}

	if created.ListID == "" {
		created.ListID = listID
	}
	c.Store.Batch(func(tx *store.Tx) {
		tx.Remove(model.KindCard, tempID)
		if _, ok := tx.List(created.ListID); ok {
			tx.Upsert(created)
		}
	})
	c.alias(tempID, created.ID)
	ev.ID = created.ID
	c.confirm(ev, boardID)
	return created, nil
}

// UpdateCard merges patch into the card, then replaces it with the backend's copy.
func (c *Coordinator) UpdateCard(ctx context.Context, cardID string, patch api.CardPatch) (model.Card, error) {
	if patch.Title != nil {
		t, err := c.checkTitle(*patch.Title)
		if err != nil {
			return model.Card{}, err
		}
		patch.Title = &t
	}
	if err := c.validate.Struct(patch); err != nil {
		return model.Card{}, validationFrom(err)
	}

	cardID, unlock := c.acquire(model.KindCard, cardID)
	defer unlock()
	if IsTempID(cardID) {
		return model.Card{}, c.unsaved(model.KindCard, cardID)
	}
	cur, ok := c.Store.Card(cardID)
	if !ok {
		return model.Card{}, NotFoundError{Kind: "card", ID: cardID}
	}
	if patch.Empty() {
		return cur, nil
	}

	var u undo
	c.Store.Batch(func(tx *store.Tx) {
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.CardKey(cardID)}}
		next, _ := tx.Card(cardID)
		tx.Upsert(applyCardPatch(next, patch))
	})
	ev := Event{Op: "update", Kind: model.KindCard, ID: cardID}
	c.applied(ev)

	var updated model.Card
	err := c.remote(ctx, "updateCard", func(ctx context.Context) error {
		var err error
		updated, err = c.Remote.UpdateCard(ctx, cardID, patch)
		return err
	})
	if err != nil {
		return model.Card{}, c.fail(u, ev, err)
	}

	final := c.adoptCard(cardID, updated)
	boardID, _ := c.listBoard(final.ListID)
	c.confirm(ev, boardID)
	return final, nil
}

func applyCardPatch(card model.Card, p api.CardPatch) model.Card {
	if p.Title != nil {
		card.Title = *p.Title
	}
	if p.Description != nil {
		card.Description = *p.Description
	}
	if p.Labels != nil {
		card.Labels = model.IDSet(*p.Labels)
	}
	if p.Assignees != nil {
		card.Assignees = model.IDSet(*p.Assignees)
	}
	if p.ClearDue {
		card.DueDate = nil
	} else if p.DueDate != nil {
		d := p.DueDate.UTC()
		card.DueDate = &d
	}
	if p.Color != nil {
		col := *p.Color
		card.Color = &col
	}
	if p.Completed != nil {
		card.Completed = *p.Completed
	}
	card.UpdatedAt = time.Now().UTC()
	return card
}

// adoptCard stores the backend's copy of a card; the server wins on every field. A reply
// without list or id keeps the local values for those.
func (c *Coordinator) adoptCard(cardID string, server model.Card) model.Card {
	var out model.Card
	c.Store.Batch(func(tx *store.Tx) {
		local, ok := tx.Card(cardID)
		if !ok {
			return
		}
		if server.ID == "" {
			server.ID = cardID
		}
		if server.ListID == "" {
			server.ListID = local.ListID
		}
		if server.ID != cardID {
			tx.Remove(model.KindCard, cardID)
		}
		tx.Upsert(server)
		out, _ = tx.Card(server.ID)
	})
	return out
}

// DeleteCard removes the card and closes the gap in its list.
func (c *Coordinator) DeleteCard(ctx context.Context, cardID string) error {
	cardID, unlock := c.acquire(model.KindCard, cardID)
	defer unlock()
	if IsTempID(cardID) {
		return c.unsaved(model.KindCard, cardID)
	}

	var u undo
	var listID string
	var found bool
	c.Store.Batch(func(tx *store.Tx) {
		card, ok := tx.Card(cardID)
		if !ok {
			return
		}
		found = true
		listID = card.ListID
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.CardKey(cardID)}}
		tx.Remove(model.KindCard, cardID)
		for _, sib := range store.RenumberCards(tx.CardsForList(listID)) {
			tx.Upsert(sib)
			u.positions = append(u.positions, store.CardKey(sib.ID))
		}
	})
	if !found {
		return NotFoundError{Kind: "card", ID: cardID}
	}
	ev := Event{Op: "delete", Kind: model.KindCard, ID: cardID}
	c.applied(ev)

	err := c.remote(ctx, "deleteCard", func(ctx context.Context) error {
		return c.Remote.DeleteCard(ctx, cardID)
	})
	if err != nil {
		return c.fail(u, ev, err)
	}
	boardID, _ := c.listBoard(listID)
	c.confirm(ev, boardID)
	return nil
}

// MoveCard appends the card to the end of targetListID. Moving a card into its own list
// changes nothing and sends nothing. Lists on another board are rejected.
func (c *Coordinator) MoveCard(ctx context.Context, cardID, targetListID string) (model.Card, error) {
	targetListID = c.resolve(targetListID)
	if targetListID == "" {
		return model.Card{}, ValidationError{Field: "targetListId", Message: "is required"}
	}
	cardID, unlock := c.acquire(model.KindCard, cardID)
	defer unlock()
	if IsTempID(cardID) {
		return model.Card{}, c.unsaved(model.KindCard, cardID)
	}
	if IsTempID(targetListID) {
		return model.Card{}, c.unsaved(model.KindList, targetListID)
	}

	var (
		u        undo
		plan     store.CardMovePlan
		boardID  string
		noop     bool
		guardErr error
		current  model.Card
	)
	c.Store.Batch(func(tx *store.Tx) {
		card, ok := tx.Card(cardID)
		if !ok {
			guardErr = NotFoundError{Kind: "card", ID: cardID}
			return
		}
		current = card
		if card.ListID == targetListID {
			noop = true
			return
		}
		target, ok := tx.List(targetListID)
		if !ok {
			guardErr = NotFoundError{Kind: "list", ID: targetListID}
			return
		}
		source, ok := tx.List(card.ListID)
		if !ok || source.BoardID != target.BoardID {
			guardErr = ValidationError{Field: "targetListId", Message: "belongs to another board"}
			return
		}
		boardID = target.BoardID

		var err error
		plan, err = store.PlanCardMove(tx.CardsForList(card.ListID), tx.CardsForList(targetListID), cardID, targetListID)
		if err != nil {
			guardErr = ValidationError{Field: "cardId", Message: err.Error()}
			return
		}
		u = undo{snap: tx.Snapshot(), whole: []store.Key{store.CardKey(cardID)}}
		plan.Card.UpdatedAt = time.Now().UTC()
		tx.Upsert(plan.Card)
		for _, sib := range plan.Renumbered {
			tx.Upsert(sib)
			u.positions = append(u.positions, store.CardKey(sib.ID))
		}
	})
	if guardErr != nil {
		return model.Card{}, guardErr
	}
	if noop {
		return current, nil
	}
	ev := Event{Op: "move", Kind: model.KindCard, ID: cardID}
	c.applied(ev)

	var moved model.Card
	err := c.remote(ctx, "moveCard", func(ctx context.Context) error {
		var err error
		moved, err = c.Remote.MoveCard(ctx, cardID, api.MoveRequest{TargetListID: targetListID, TargetPosition: plan.TargetPosition})
		return err
	})
	if err != nil {
		return model.Card{}, c.fail(u, ev, err)
	}

	if moved.ListID == "" {
		moved.ListID = targetListID
	}
	final := c.adoptCard(cardID, moved)
	c.confirm(ev, boardID)
	return final, nil
}
