package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"kanban-cli/internal/model"
)

func (c *Client) GetListsByBoard(ctx context.Context, boardID string) ([]model.List, error) {
	if err := requireID("board", boardID); err != nil {
		return nil, err
	}
	var out []wireList
	if err := c.do(ctx, http.MethodGet, "/boards/"+seg(boardID)+"/lists", nil, nil, &out); err != nil {
		return nil, err
	}
	lists := listsFromWire(out)
	for i := range lists {
		if lists[i].BoardID == "" {
			lists[i].BoardID = strings.TrimSpace(boardID)
		}
	}
	return lists, nil
}

func (c *Client) CreateList(ctx context.Context, boardID, title string) (model.List, error) {
	if err := requireID("board", boardID); err != nil {
		return model.List{}, err
	}
	var out wireList
	if err := c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/lists", nil, map[string]any{"title": strings.TrimSpace(title)}, &out); err != nil {
		return model.List{}, err
	}
	l := out.model()
	if l.BoardID == "" {
		l.BoardID = strings.TrimSpace(boardID)
	}
	return l, nil
}

func (c *Client) UpdateList(ctx context.Context, boardID, listID string, patch ListPatch) (model.List, error) {
	if err := requireID("list", listID); err != nil {
		return model.List{}, err
	}
	body := map[string]any{}
	if patch.Title != nil {
		body["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Color != nil {
		body["color"] = *patch.Color
	}
	if patch.Position != nil {
		body["position"] = *patch.Position
	}
	var out wireList
	if err := c.do(ctx, http.MethodPut, "/boards/"+seg(boardID)+"/lists/"+seg(listID), nil, body, &out); err != nil {
		return model.List{}, err
	}
	l := out.model()
	if l.BoardID == "" {
		l.BoardID = strings.TrimSpace(boardID)
	}
	return l, nil
}

func (c *Client) DeleteList(ctx context.Context, boardID, listID string) error {
	if err := requireID("list", listID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/boards/"+seg(boardID)+"/lists/"+seg(listID), nil, nil, nil)
}

func (c *Client) GetCardsByList(ctx context.Context, listID string) ([]model.Card, error) {
	if err := requireID("list", listID); err != nil {
		return nil, err
	}
	var out []wireCard
	if err := c.do(ctx, http.MethodGet, "/lists/"+seg(listID)+"/cards", nil, nil, &out); err != nil {
		return nil, err
	}
	cards, err := cardsFromWire(out)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].ListID == "" {
			cards[i].ListID = strings.TrimSpace(listID)
		}
	}
	return cards, nil
}

func (c *Client) CreateCard(ctx context.Context, boardID, listID string, fields CardFields) (model.Card, error) {
	if err := requireID("list", listID); err != nil {
		return model.Card{}, err
	}
	body := map[string]any{"title": strings.TrimSpace(fields.Title)}
	if fields.Description != "" {
		body["description"] = fields.Description
	}
	if len(fields.Labels) > 0 {
		body["labels"] = fields.Labels
	}
	if fields.DueDate != nil {
		body["dueDate"] = fields.DueDate.UTC().Format(time.RFC3339)
	}
	if fields.Color != nil {
		body["color"] = *fields.Color
	}
	var out wireCard
	if err := c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/lists/"+seg(listID)+"/cards", nil, body, &out); err != nil {
		return model.Card{}, err
	}
	card, err := out.model()
	if err != nil {
		return model.Card{}, err
	}
	if card.ListID == "" {
		card.ListID = strings.TrimSpace(listID)
	}
	return card, nil
}

func (c *Client) UpdateCard(ctx context.Context, cardID string, patch CardPatch) (model.Card, error) {
	if err := requireID("card", cardID); err != nil {
		return model.Card{}, err
	}
	var out wireCard
	if err := c.do(ctx, http.MethodPut, "/cards/"+seg(cardID), nil, patch.body(), &out); err != nil {
		return model.Card{}, err
	}
	return out.model()
}

func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	if err := requireID("card", cardID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/cards/"+seg(cardID), nil, nil, nil)
}

func (c *Client) MoveCard(ctx context.Context, cardID string, req MoveRequest) (model.Card, error) {
	if err := requireID("card", cardID); err != nil {
		return model.Card{}, err
	}
	var out wireCard
	if err := c.do(ctx, http.MethodPost, "/cards/"+seg(cardID)+"/move", nil, req, &out); err != nil {
		return model.Card{}, err
	}
	card, err := out.model()
	if err != nil {
		return model.Card{}, err
	}
	if card.ListID == "" {
		card.ListID = req.TargetListID
	}
	return card, nil
}
