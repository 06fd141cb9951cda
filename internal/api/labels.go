package api

import (
	"context"
	"net/http"
	"strings"

	"kanban-cli/internal/model"
)

// LabelFields are the values of a new or updated label. Empty fields are not sent on update.
type LabelFields struct {
	Title string `json:"title" validate:"required,max=64"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (c *Client) ListLabels(ctx context.Context, boardID string) ([]model.Label, error) {
	if err := requireID("board", boardID); err != nil {
		return nil, err
	}
	var out []wireLabel
	if err := c.do(ctx, http.MethodGet, "/boards/"+seg(boardID)+"/labels", nil, nil, &out); err != nil {
		return nil, err
	}
	labels := make([]model.Label, 0, len(out))
	for _, w := range out {
		labels = append(labels, w.model())
	}
	return labels, nil
}

func (c *Client) CreateLabel(ctx context.Context, boardID string, f LabelFields) (model.Label, error) {
	if err := requireID("board", boardID); err != nil {
		return model.Label{}, err
	}
	var out wireLabel
	body := map[string]any{"title": strings.TrimSpace(f.Title), "color": strings.TrimSpace(f.Color)}
	if err := c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/labels", nil, body, &out); err != nil {
		return model.Label{}, err
	}
	return out.model(), nil
}

func (c *Client) UpdateLabel(ctx context.Context, labelID string, f LabelFields) (model.Label, error) {
	if err := requireID("label", labelID); err != nil {
		return model.Label{}, err
	}
	body := map[string]any{}
	if t := strings.TrimSpace(f.Title); t != "" {
		body["title"] = t
	}
	if col := strings.TrimSpace(f.Color); col != "" {
		body["color"] = col
	}
	var out wireLabel
	if err := c.do(ctx, http.MethodPut, "/labels/"+seg(labelID), nil, body, &out); err != nil {
		return model.Label{}, err
	}
	return out.model(), nil
}

func (c *Client) DeleteLabel(ctx context.Context, labelID string) error {
	if err := requireID("label", labelID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/labels/"+seg(labelID), nil, nil, nil)
}

func (c *Client) AttachLabel(ctx context.Context, cardID, labelID string) error {
	if err := requireID("card", cardID); err != nil {
		return err
	}
	if err := requireID("label", labelID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/cards/"+seg(cardID)+"/labels", nil, map[string]any{"labelId": strings.TrimSpace(labelID)}, nil)
}

// DetachLabel sends the label id in a DELETE body, which is what the backend expects.
func (c *Client) DetachLabel(ctx context.Context, cardID, labelID string) error {
	if err := requireID("card", cardID); err != nil {
		return err
	}
	if err := requireID("label", labelID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/cards/"+seg(cardID)+"/labels", nil, map[string]any{"labelId": strings.TrimSpace(labelID)}, nil)
}

func (c *Client) ListComments(ctx context.Context, cardID string) ([]model.Comment, error) {
	if err := requireID("card", cardID); err != nil {
		return nil, err
	}
	var out []wireComment
	if err := c.do(ctx, http.MethodGet, "/cards/"+seg(cardID)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(out))
	for _, w := range out {
		cm := w.model()
		if cm.CardID == "" {
			cm.CardID = strings.TrimSpace(cardID)
		}
		comments = append(comments, cm)
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, cardID, content string) (model.Comment, error) {
	if err := requireID("card", cardID); err != nil {
		return model.Comment{}, err
	}
	var out wireComment
	if err := c.do(ctx, http.MethodPost, "/cards/"+seg(cardID)+"/comments", nil, map[string]any{"content": content}, &out); err != nil {
		return model.Comment{}, err
	}
	cm := out.model()
	if cm.CardID == "" {
		cm.CardID = strings.TrimSpace(cardID)
	}
	return cm, nil
}

func (c *Client) UpdateComment(ctx context.Context, commentID, content string) (model.Comment, error) {
	if err := requireID("comment", commentID); err != nil {
		return model.Comment{}, err
	}
	var out wireComment
	if err := c.do(ctx, http.MethodPut, "/comments/"+seg(commentID), nil, map[string]any{"content": content}, &out); err != nil {
		return model.Comment{}, err
	}
	return out.model(), nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	if err := requireID("comment", commentID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/comments/"+seg(commentID), nil, nil, nil)
}
