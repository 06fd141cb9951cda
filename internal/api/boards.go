package api

import (
	"context"
	"net/http"
	"strings"

	"kanban-cli/internal/model"
)

func (c *Client) ListBoards(ctx context.Context) ([]model.Board, error) {
	var out []wireBoard
	if err := c.do(ctx, http.MethodGet, "/boards", nil, nil, &out); err != nil {
		return nil, err
	}
	return boardsFromWire(out), nil
}

func (c *Client) GetBoard(ctx context.Context, boardID string) (model.Board, error) {
	if err := requireID("board", boardID); err != nil {
		return model.Board{}, err
	}
	var out wireBoard
	if err := c.do(ctx, http.MethodGet, "/boards/"+seg(boardID), nil, nil, &out); err != nil {
		return model.Board{}, err
	}
	return out.model(), nil
}

func (c *Client) CreateBoard(ctx context.Context, title string) (model.Board, error) {
	var out wireBoard
	if err := c.do(ctx, http.MethodPost, "/boards", nil, map[string]any{"title": strings.TrimSpace(title)}, &out); err != nil {
		return model.Board{}, err
	}
	return out.model(), nil
}

func (c *Client) UpdateBoard(ctx context.Context, boardID, title string) (model.Board, error) {
	if err := requireID("board", boardID); err != nil {
		return model.Board{}, err
	}
	var out wireBoard
	if err := c.do(ctx, http.MethodPut, "/boards/"+seg(boardID), nil, map[string]any{"title": strings.TrimSpace(title)}, &out); err != nil {
		return model.Board{}, err
	}
	return out.model(), nil
}

func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	if err := requireID("board", boardID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/boards/"+seg(boardID), nil, nil, nil)
}

func (c *Client) InviteByEmail(ctx context.Context, boardID, email string) (model.Board, error) {
	if err := requireID("board", boardID); err != nil {
		return model.Board{}, err
	}
	var out wireBoard
	if err := c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/invite-by-email", nil, map[string]any{"email": strings.TrimSpace(email)}, &out); err != nil {
		return model.Board{}, err
	}
	return out.model(), nil
}

func (c *Client) RemoveMember(ctx context.Context, boardID, memberID string) (model.Board, error) {
	if err := requireID("board", boardID); err != nil {
		return model.Board{}, err
	}
	var out wireBoard
	if err := c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/remove-member", nil, map[string]any{"memberId": strings.TrimSpace(memberID)}, &out); err != nil {
		return model.Board{}, err
	}
	return out.model(), nil
}

func (c *Client) LeaveBoard(ctx context.Context, boardID string) (model.Board, error) {
	if err := requireID("board", boardID); err != nil {
		return model.Board{}, err
	}
	var out wireBoard
	if err := c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/leave", nil, nil, &out); err != nil {
		return model.Board{}, err
	}
	return out.model(), nil
}

func (c *Client) ListInvitations(ctx context.Context) ([]model.Invitation, error) {
	var out []wireInvitation
	if err := c.do(ctx, http.MethodGet, "/boards/invitations", nil, nil, &out); err != nil {
		return nil, err
	}
	invs := make([]model.Invitation, 0, len(out))
	for _, w := range out {
		invs = append(invs, w.model())
	}
	return invs, nil
}

func (c *Client) AcceptInvitation(ctx context.Context, boardID, invitationID string) error {
	if err := requireID("invitation", invitationID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/invitations/"+seg(invitationID)+"/accept", nil, nil, nil)
}

func (c *Client) RejectInvitation(ctx context.Context, boardID, invitationID string) error {
	if err := requireID("invitation", invitationID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/boards/"+seg(boardID)+"/invitations/"+seg(invitationID)+"/reject", nil, nil, nil)
}
