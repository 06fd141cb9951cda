package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"kanban-cli/internal/model"
)

// Wire shapes. The backend is a Mongo-style API: ids arrive as "_id" (sometimes "id"),
// references arrive as ids or populated objects, timestamps may be missing. Everything is
// mapped to the canonical model before it leaves this package.

type wireTime struct{ time.Time }

func (t *wireTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	p, err := model.ParseDue(s)
	if err != nil {
		return err
	}
	if p != nil {
		t.Time = *p
	}
	return nil
}

func pickID(mongoID, id string) string {
	if v := strings.TrimSpace(mongoID); v != "" {
		return v
	}
	return strings.TrimSpace(id)
}

type wireUser struct {
	MongoID  string `json:"_id"`
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (w wireUser) model() model.User {
	return model.User{ID: pickID(w.MongoID, w.ID), Email: strings.TrimSpace(w.Email), Username: strings.TrimSpace(w.Username), Avatar: w.Avatar}
}

type wireBoard struct {
	MongoID   string      `json:"_id"`
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Owner     model.Ref   `json:"owner"`
	Members   []model.Ref `json:"members"`
	CreatedAt wireTime    `json:"createdAt"`
	UpdatedAt wireTime    `json:"updatedAt"`
}

func (w wireBoard) model() model.Board {
	return model.NormalizeBoard(model.Board{
		ID:        pickID(w.MongoID, w.ID),
		Title:     w.Title,
		Owner:     string(w.Owner),
		Members:   model.Refs(w.Members),
		CreatedAt: w.CreatedAt.Time,
		UpdatedAt: w.UpdatedAt.Time,
	})
}

type wireList struct {
	MongoID   string    `json:"_id"`
	ID        string    `json:"id"`
	BoardID   model.Ref `json:"boardId"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Color     *string   `json:"color"`
	CreatedAt wireTime  `json:"createdAt"`
	UpdatedAt wireTime  `json:"updatedAt"`
}

func (w wireList) model() model.List {
	return model.NormalizeList(model.List{
		ID:        pickID(w.MongoID, w.ID),
		BoardID:   string(w.BoardID),
		Title:     w.Title,
		Position:  w.Position,
		Color:     w.Color,
		CreatedAt: w.CreatedAt.Time,
		UpdatedAt: w.UpdatedAt.Time,
	})
}

type wireCard struct {
	MongoID     string      `json:"_id"`
	ID          string      `json:"id"`
	ListID      model.Ref   `json:"listId"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Position    int         `json:"position"`
	CreatedBy   model.Ref   `json:"createdBy"`
	Assignees   []model.Ref `json:"assignees"`
	Labels      []model.Ref `json:"labels"`
	DueDate     *string     `json:"dueDate"`
	Color       *string     `json:"color"`
	Completed   bool        `json:"isCompleted"`
	CreatedAt   wireTime    `json:"createdAt"`
	UpdatedAt   wireTime    `json:"updatedAt"`
}

func (w wireCard) model() (model.Card, error) {
	var due *time.Time
	if w.DueDate != nil {
		d, err := model.ParseDue(*w.DueDate)
		if err != nil {
			return model.Card{}, err
		}
		due = d
	}
	return model.NormalizeCard(model.Card{
		ID:          pickID(w.MongoID, w.ID),
		ListID:      string(w.ListID),
		Title:       w.Title,
		Description: w.Description,
		Position:    w.Position,
		CreatedBy:   string(w.CreatedBy),
		Assignees:   model.Refs(w.Assignees),
		Labels:      model.Refs(w.Labels),
		DueDate:     due,
		Color:       w.Color,
		Completed:   w.Completed,
		CreatedAt:   w.CreatedAt.Time,
		UpdatedAt:   w.UpdatedAt.Time,
	}), nil
}

type wireInvitation struct {
	MongoID   string    `json:"_id"`
	ID        string    `json:"id"`
	BoardID   model.Ref `json:"boardId"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt wireTime  `json:"createdAt"`
	UpdatedAt wireTime  `json:"updatedAt"`
}

func (w wireInvitation) model() model.Invitation {
	st := model.InvitationStatus(strings.ToLower(strings.TrimSpace(w.Status)))
	switch st {
	case model.InvitationAccepted, model.InvitationRejected:
	default:
		st = model.InvitationPending
	}
	return model.Invitation{
		ID:        pickID(w.MongoID, w.ID),
		BoardID:   string(w.BoardID),
		Email:     strings.TrimSpace(w.Email),
		Status:    st,
		CreatedAt: w.CreatedAt.Time,
		UpdatedAt: w.UpdatedAt.Time,
	}
}

type wireLabel struct {
	MongoID   string    `json:"_id"`
	ID        string    `json:"id"`
	BoardID   model.Ref `json:"boardId"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	CreatedAt wireTime  `json:"createdAt"`
	UpdatedAt wireTime  `json:"updatedAt"`
}

func (w wireLabel) model() model.Label {
	return model.Label{
		ID:        pickID(w.MongoID, w.ID),
		BoardID:   string(w.BoardID),
		Title:     strings.TrimSpace(w.Title),
		Color:     strings.TrimSpace(w.Color),
		CreatedAt: w.CreatedAt.Time,
		UpdatedAt: w.UpdatedAt.Time,
	}
}

type wireComment struct {
	MongoID   string    `json:"_id"`
	ID        string    `json:"id"`
	CardID    model.Ref `json:"cardId"`
	AuthorID  model.Ref `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt wireTime  `json:"createdAt"`
	UpdatedAt wireTime  `json:"updatedAt"`
}

func (w wireComment) model() model.Comment {
	return model.Comment{
		ID:        pickID(w.MongoID, w.ID),
		CardID:    string(w.CardID),
		AuthorID:  string(w.AuthorID),
		Content:   w.Content,
		CreatedAt: w.CreatedAt.Time,
		UpdatedAt: w.UpdatedAt.Time,
	}
}

func cardsFromWire(in []wireCard) ([]model.Card, error) {
	out := make([]model.Card, 0, len(in))
	for _, w := range in {
		c, err := w.model()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func listsFromWire(in []wireList) []model.List {
	out := make([]model.List, 0, len(in))
	for _, w := range in {
		out = append(out, w.model())
	}
	return out
}

func boardsFromWire(in []wireBoard) []model.Board {
	out := make([]model.Board, 0, len(in))
	for _, w := range in {
		out = append(out, w.model())
	}
	return out
}
