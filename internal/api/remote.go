package api

import (
	"context"
	"time"

	"kanban-cli/internal/model"
)

// Remote is the board/list/card surface the mutation coordinator drives. The backend owns
// persistence and is authoritative for every entity it returns.
type Remote interface {
	GetBoard(ctx context.Context, boardID string) (model.Board, error)
	GetListsByBoard(ctx context.Context, boardID string) ([]model.List, error)
	GetCardsByList(ctx context.Context, listID string) ([]model.Card, error)

	CreateList(ctx context.Context, boardID, title string) (model.List, error)
	UpdateList(ctx context.Context, boardID, listID string, patch ListPatch) (model.List, error)
	DeleteList(ctx context.Context, boardID, listID string) error

	CreateCard(ctx context.Context, boardID, listID string, fields CardFields) (model.Card, error)
	UpdateCard(ctx context.Context, cardID string, patch CardPatch) (model.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	MoveCard(ctx context.Context, cardID string, req MoveRequest) (model.Card, error)
}

// BoardRemote covers board lifecycle, membership and invitations.
type BoardRemote interface {
	ListBoards(ctx context.Context) ([]model.Board, error)
	CreateBoard(ctx context.Context, title string) (model.Board, error)
	UpdateBoard(ctx context.Context, boardID, title string) (model.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error

	InviteByEmail(ctx context.Context, boardID, email string) (model.Board, error)
	RemoveMember(ctx context.Context, boardID, memberID string) (model.Board, error)
	LeaveBoard(ctx context.Context, boardID string) (model.Board, error)

	ListInvitations(ctx context.Context) ([]model.Invitation, error)
	AcceptInvitation(ctx context.Context, boardID, invitationID string) error
	RejectInvitation(ctx context.Context, boardID, invitationID string) error
}

// Backend is everything the coordinator talks to.
type Backend interface {
	Remote
	BoardRemote
}

// CardFields are the initial values of a new card.
type CardFields struct {
	Title       string     `json:"title" validate:"required,max=512"`
	Description string     `json:"description,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Color       *string    `json:"color,omitempty"`
}

// CardPatch is a partial card update. Nil fields are left untouched.
type CardPatch struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=512"`
	Description *string    `json:"description,omitempty"`
	Labels      *[]string  `json:"labels,omitempty"`
	Assignees   *[]string  `json:"assignees,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ClearDue    bool       `json:"-"`
	Color       *string    `json:"color,omitempty"`
	Completed   *bool      `json:"isCompleted,omitempty"`
}

func (p CardPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Labels == nil && p.Assignees == nil &&
		p.DueDate == nil && !p.ClearDue && p.Color == nil && p.Completed == nil
}

// body renders the patch as the JSON object sent to the backend. ClearDue sends dueDate: null.
func (p CardPatch) body() map[string]any {
	out := map[string]any{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Labels != nil {
		out["labels"] = *p.Labels
	}
	if p.Assignees != nil {
		out["assignees"] = *p.Assignees
	}
	if p.ClearDue {
		out["dueDate"] = nil
	} else if p.DueDate != nil {
		out["dueDate"] = p.DueDate.UTC().Format(time.RFC3339)
	}
	if p.Color != nil {
		out["color"] = *p.Color
	}
	if p.Completed != nil {
		out["isCompleted"] = *p.Completed
	}
	return out
}

// ListPatch is a partial list update. Nil fields are left untouched.
type ListPatch struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=512"`
	Color    *string `json:"color,omitempty"`
	Position *int    `json:"position,omitempty" validate:"omitempty,min=0"`
}

func (p ListPatch) Empty() bool {
	return p.Title == nil && p.Color == nil && p.Position == nil
}

// MoveRequest is the body of a card move.
type MoveRequest struct {
	TargetListID   string `json:"targetListId"`
	TargetPosition int    `json:"targetPosition"`
}
