package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kanban-cli/internal/model"
)

type SearchQuery struct {
	Query   string `validate:"required"`
	BoardID string
	ListID  string
	Limit   int `validate:"min=0,max=100"`
	Offset  int `validate:"min=0"`
}

func (q SearchQuery) values() url.Values {
	v := url.Values{}
	v.Set("query", strings.TrimSpace(q.Query))
	if q.BoardID != "" {
		v.Set("boardId", q.BoardID)
	}
	if q.ListID != "" {
		v.Set("listId", q.ListID)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

type BoardPage struct {
	Boards []model.Board `json:"boards"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type CardPage struct {
	Cards  []model.Card `json:"cards"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (c *Client) SearchBoards(ctx context.Context, q SearchQuery) (BoardPage, error) {
	q.BoardID, q.ListID = "", ""
	var out struct {
		Boards []wireBoard `json:"boards"`
		Total  int         `json:"total"`
		Limit  int         `json:"limit"`
		Offset int         `json:"offset"`
	}
	if err := c.do(ctx, http.MethodGet, "/search/boards", q.values(), nil, &out); err != nil {
		return BoardPage{}, err
	}
	return BoardPage{Boards: boardsFromWire(out.Boards), Total: out.Total, Limit: out.Limit, Offset: out.Offset}, nil
}

func (c *Client) SearchCards(ctx context.Context, q SearchQuery) (CardPage, error) {
	var out struct {
		Cards  []wireCard `json:"cards"`
		Total  int        `json:"total"`
		Limit  int        `json:"limit"`
		Offset int        `json:"offset"`
	}
	if err := c.do(ctx, http.MethodGet, "/search/cards", q.values(), nil, &out); err != nil {
		return CardPage{}, err
	}
	cards, err := cardsFromWire(out.Cards)
	if err != nil {
		return CardPage{}, err
	}
	return CardPage{Cards: cards, Total: out.Total, Limit: out.Limit, Offset: out.Offset}, nil
}
