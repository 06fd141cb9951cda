package apitest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kanban-cli/internal/model"
)

// Wire rendering. Owners go out populated, everything else as bare ids.

func (s *Server) wireUserLocked(id string) map[string]any {
	a := s.users[id]
	if a == nil {
		return map[string]any{"_id": id}
	}
	return map[string]any{"_id": a.user.ID, "email": a.user.Email, "username": a.user.Username, "avatar": a.user.Avatar}
}

func (s *Server) wireBoardLocked(b *model.Board) map[string]any {
	return map[string]any{
		"_id":       b.ID,
		"title":     b.Title,
		"owner":     s.wireUserLocked(b.Owner),
		"members":   append([]string{}, b.Members...),
		"createdAt": b.CreatedAt.Format(time.RFC3339),
		"updatedAt": b.UpdatedAt.Format(time.RFC3339),
	}
}

func wireList(l *model.List) map[string]any {
	out := map[string]any{
		"_id":       l.ID,
		"boardId":   l.BoardID,
		"title":     l.Title,
		"position":  l.Position,
		"createdAt": l.CreatedAt.Format(time.RFC3339),
		"updatedAt": l.UpdatedAt.Format(time.RFC3339),
	}
	if l.Color != nil {
		out["color"] = *l.Color
	}
	return out
}

func wireCard(c *model.Card) map[string]any {
	out := map[string]any{
		"_id":         c.ID,
		"listId":      c.ListID,
		"title":       c.Title,
		"description": c.Description,
		"position":    c.Position,
		"createdBy":   c.CreatedBy,
		"assignees":   append([]string{}, c.Assignees...),
		"labels":      append([]string{}, c.Labels...),
		"isCompleted": c.Completed,
		"dueDate":     nil,
		"createdAt":   c.CreatedAt.Format(time.RFC3339),
		"updatedAt":   c.UpdatedAt.Format(time.RFC3339),
	}
	if c.DueDate != nil {
		out["dueDate"] = c.DueDate.UTC().Format(time.RFC3339)
	}
	if c.Color != nil {
		out["color"] = *c.Color
	}
	return out
}

func wireLabel(l *model.Label) map[string]any {
	return map[string]any{"_id": l.ID, "boardId": l.BoardID, "title": l.Title, "color": l.Color}
}

func wireComment(c *model.Comment) map[string]any {
	return map[string]any{
		"_id":       c.ID,
		"cardId":    c.CardID,
		"authorId":  c.AuthorID,
		"content":   c.Content,
		"createdAt": c.CreatedAt.Format(time.RFC3339),
		"updatedAt": c.UpdatedAt.Format(time.RFC3339),
	}
}

// boardForLocked resolves a board and checks membership. It writes the error response
// itself and returns nil when the caller should stop.
func (s *Server) boardForLocked(w http.ResponseWriter, boardID, uid string) *model.Board {
	b := s.boards[boardID]
	if b == nil {
		writeError(w, http.StatusNotFound, "Board not found")
		return nil
	}
	if !b.HasMember(uid) {
		writeError(w, http.StatusForbidden, "Not a member of this board")
		return nil
	}
	return b
}

func (s *Server) cardBoardLocked(c *model.Card) string {
	if l := s.lists[c.ListID]; l != nil {
		return l.BoardID
	}
	return ""
}

// Auth.

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	s.mu.Lock()
	var found *account
	for _, a := range s.users {
		if strings.EqualFold(a.user.Email, strings.TrimSpace(body.Email)) {
			found = a
			break
		}
	}
	if found == nil || found.password != body.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	uid := found.user.ID
	user := s.wireUserLocked(uid)
	now, ttl := s.now(), s.tokenTTL
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"token": mintToken(uid, now, ttl), "user": user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Email) == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	for _, a := range s.users {
		if strings.EqualFold(a.user.Email, strings.TrimSpace(body.Email)) {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
	}
	id := s.nextID()
	s.users[id] = &account{user: model.User{ID: id, Email: strings.TrimSpace(body.Email), Username: body.Username}, password: body.Password}
	user := s.wireUserLocked(id)
	now, ttl := s.now(), s.tokenTTL
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"token": mintToken(id, now, ttl), "user": user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.wireUserLocked(userID(r)))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username        *string `json:"username"`
		Avatar          *string `json:"avatar"`
		Password        *string `json:"password"`
		ConfirmPassword *string `json:"confirmPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if body.Password != nil && (body.ConfirmPassword == nil || *body.ConfirmPassword != *body.Password) {
		writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.users[userID(r)]
	if body.Username != nil {
		a.user.Username = *body.Username
	}
	if body.Avatar != nil {
		a.user.Avatar = *body.Avatar
	}
	if body.Password != nil {
		a.password = *body.Password
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": s.wireUserLocked(a.user.ID)})
}

// Boards.

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.boards))
	for id, b := range s.boards {
		if b.HasMember(uid) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.wireBoardLocked(s.boards[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	uid := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	b := &model.Board{ID: s.nextID(), Title: strings.TrimSpace(body.Title), Owner: uid, Members: []string{uid}, CreatedAt: now, UpdatedAt: now}
	s.boards[b.ID] = b
	writeJSON(w, http.StatusCreated, s.wireBoardLocked(b))
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.wireBoardLocked(b))
}

func (s *Server) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	b.Title = strings.TrimSpace(body.Title)
	b.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, s.wireBoardLocked(b))
}

func (s *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	if b.Owner != userID(r) {
		writeError(w, http.StatusForbidden, "Only the owner can delete a board")
		return
	}
	for id, l := range s.lists {
		if l.BoardID != b.ID {
			continue
		}
		for cid, c := range s.cards {
			if c.ListID == id {
				delete(s.cards, cid)
			}
		}
		delete(s.lists, id)
	}
	delete(s.boards, b.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Board deleted"})
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	if b.Owner != userID(r) {
		writeError(w, http.StatusForbidden, "Only the owner can invite members")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	for _, inv := range s.invitations {
		if inv.BoardID == b.ID && inv.Email == email && inv.Status == model.InvitationPending {
			writeError(w, http.StatusConflict, "Invitation already pending")
			return
		}
	}
	now := s.now()
	inv := &model.Invitation{ID: s.nextID(), BoardID: b.ID, Email: email, Status: model.InvitationPending, CreatedAt: now, UpdatedAt: now}
	s.invitations[inv.ID] = inv
	writeJSON(w, http.StatusOK, s.wireBoardLocked(b))
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MemberID string `json:"memberId"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.MemberID) == "" {
		writeError(w, http.StatusBadRequest, "memberId is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	if b.Owner != userID(r) {
		writeError(w, http.StatusForbidden, "Only the owner can remove members")
		return
	}
	if body.MemberID == b.Owner {
		writeError(w, http.StatusBadRequest, "The owner cannot be removed")
		return
	}
	b.Members = without(b.Members, body.MemberID)
	writeJSON(w, http.StatusOK, s.wireBoardLocked(b))
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userID(r)
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), uid)
	if b == nil {
		return
	}
	if b.Owner == uid {
		writeError(w, http.StatusBadRequest, "The owner cannot leave the board")
		return
	}
	b.Members = without(b.Members, uid)
	writeJSON(w, http.StatusOK, s.wireBoardLocked(b))
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(s.users[userID(r)].user.Email)
	ids := []string{}
	for id, inv := range s.invitations {
		if inv.Email == email && inv.Status == model.InvitationPending {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		inv := s.invitations[id]
		out = append(out, map[string]any{"_id": inv.ID, "boardId": inv.BoardID, "email": inv.Email, "status": string(inv.Status)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAnswerInvitation(status model.InvitationStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		uid := userID(r)
		inv := s.invitations[chi.URLParam(r, "invitationID")]
		if inv == nil || inv.BoardID != chi.URLParam(r, "boardID") {
			writeError(w, http.StatusNotFound, "Invitation not found")
			return
		}
		if !strings.EqualFold(inv.Email, s.users[uid].user.Email) {
			writeError(w, http.StatusForbidden, "Invitation is for another user")
			return
		}
		if inv.Status != model.InvitationPending {
			writeError(w, http.StatusConflict, "Invitation already answered")
			return
		}
		inv.Status = status
		inv.UpdatedAt = s.now()
		if status == model.InvitationAccepted {
			if b := s.boards[inv.BoardID]; b != nil && !b.HasMember(uid) {
				b.Members = append(b.Members, uid)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Invitation " + string(status)})
	}
}

// Lists.

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	out := []map[string]any{}
	for _, l := range s.sortedListsLocked(b.ID) {
		out = append(out, wireList(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	writeJSON(w, http.StatusCreated, wireList(s.createListLocked(b.ID, strings.TrimSpace(body.Title))))
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    *string `json:"title"`
		Color    *string `json:"color"`
		Position *int    `json:"position"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if body.Title != nil && strings.TrimSpace(*body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title cannot be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	l := s.lists[chi.URLParam(r, "listID")]
	if l == nil || l.BoardID != b.ID {
		writeError(w, http.StatusNotFound, "List not found")
		return
	}
	if body.Title != nil {
		l.Title = strings.TrimSpace(*body.Title)
	}
	if body.Color != nil {
		c := *body.Color
		l.Color = &c
	}
	if body.Position != nil {
		ordered := s.sortedListsLocked(b.ID)
		rest := make([]*model.List, 0, len(ordered))
		for _, o := range ordered {
			if o.ID != l.ID {
				rest = append(rest, o)
			}
		}
		idx := clamp(*body.Position, 0, len(rest))
		rest = append(rest[:idx], append([]*model.List{l}, rest[idx:]...)...)
		for i, o := range rest {
			o.Position = i
		}
	}
	l.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, wireList(l))
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	l := s.lists[chi.URLParam(r, "listID")]
	if l == nil || l.BoardID != b.ID {
		writeError(w, http.StatusNotFound, "List not found")
		return
	}
	for id, c := range s.cards {
		if c.ListID == l.ID {
			delete(s.cards, id)
		}
	}
	delete(s.lists, l.ID)
	s.renumberListsLocked(b.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "List deleted"})
}

// Cards.

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[chi.URLParam(r, "listID")]
	if l == nil {
		writeError(w, http.StatusNotFound, "List not found")
		return
	}
	if s.boardForLocked(w, l.BoardID, userID(r)) == nil {
		return
	}
	out := []map[string]any{}
	for _, c := range s.sortedCardsLocked(l.ID) {
		out = append(out, wireCard(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Labels      []string `json:"labels"`
		DueDate     *string  `json:"dueDate"`
		Color       *string  `json:"color"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	l := s.lists[chi.URLParam(r, "listID")]
	if l == nil || l.BoardID != b.ID {
		writeError(w, http.StatusNotFound, "List not found")
		return
	}
	c := s.createCardLocked(l.ID, strings.TrimSpace(body.Title), userID(r))
	c.Description = body.Description
	if body.Labels != nil {
		c.Labels = model.IDSet(body.Labels)
	}
	if body.DueDate != nil {
		due, err := model.ParseDue(*body.DueDate)
		if err != nil {
			delete(s.cards, c.ID)
			writeError(w, http.StatusBadRequest, "Invalid due date")
			return
		}
		c.DueDate = due
	}
	c.Color = body.Color
	writeJSON(w, http.StatusCreated, wireCard(c))
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cards[chi.URLParam(r, "cardID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	if s.boardForLocked(w, s.cardBoardLocked(c), userID(r)) == nil {
		return
	}
	next := *c
	for k, raw := range body {
		var err error
		switch k {
		case "title":
			err = json.Unmarshal(raw, &next.Title)
			if err == nil && strings.TrimSpace(next.Title) == "" {
				writeError(w, http.StatusBadRequest, "Title cannot be empty")
				return
			}
		case "description":
			err = json.Unmarshal(raw, &next.Description)
		case "labels":
			err = json.Unmarshal(raw, &next.Labels)
		case "assignees":
			err = json.Unmarshal(raw, &next.Assignees)
		case "isCompleted":
			err = json.Unmarshal(raw, &next.Completed)
		case "color":
			var col *string
			err = json.Unmarshal(raw, &col)
			next.Color = col
		case "dueDate":
			var due *string
			if err = json.Unmarshal(raw, &due); err == nil {
				if due == nil {
					next.DueDate = nil
				} else {
					next.DueDate, err = model.ParseDue(*due)
				}
			}
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid "+k)
			return
		}
	}
	next.UpdatedAt = s.now()
	*c = next
	writeJSON(w, http.StatusOK, wireCard(c))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cards[chi.URLParam(r, "cardID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	if s.boardForLocked(w, s.cardBoardLocked(c), userID(r)) == nil {
		return
	}
	delete(s.cards, c.ID)
	s.renumberCardsLocked(c.ListID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Card deleted"})
}

func (s *Server) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetListID   string `json:"targetListId"`
		TargetPosition int    `json:"targetPosition"`
	}
	if err := decodeBody(r, &body); err != nil || body.TargetListID == "" {
		writeError(w, http.StatusBadRequest, "targetListId is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cards[chi.URLParam(r, "cardID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	from := s.cardBoardLocked(c)
	if s.boardForLocked(w, from, userID(r)) == nil {
		return
	}
	target := s.lists[body.TargetListID]
	if target == nil {
		writeError(w, http.StatusNotFound, "Target list not found")
		return
	}
	if target.BoardID != from {
		writeError(w, http.StatusBadRequest, "Cannot move a card to another board")
		return
	}
	source := c.ListID
	c.ListID = ""
	s.renumberCardsLocked(source)
	rest := s.sortedCardsLocked(target.ID)
	idx := clamp(body.TargetPosition, 0, len(rest))
	rest = append(rest[:idx], append([]*model.Card{c}, rest[idx:]...)...)
	c.ListID = target.ID
	for i, o := range rest {
		o.Position = i
	}
	c.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, wireCard(c))
}

// Labels.

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	ids := []string{}
	for id, l := range s.labels {
		if l.BoardID == b.ID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, wireLabel(s.labels[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
		Color string `json:"color"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boardForLocked(w, chi.URLParam(r, "boardID"), userID(r))
	if b == nil {
		return
	}
	now := s.now()
	l := &model.Label{ID: s.nextID(), BoardID: b.ID, Title: strings.TrimSpace(body.Title), Color: body.Color, CreatedAt: now, UpdatedAt: now}
	s.labels[l.ID] = l
	writeJSON(w, http.StatusCreated, wireLabel(l))
}

func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title *string `json:"title"`
		Color *string `json:"color"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.labels[chi.URLParam(r, "labelID")]
	if l == nil {
		writeError(w, http.StatusNotFound, "Label not found")
		return
	}
	if s.boardForLocked(w, l.BoardID, userID(r)) == nil {
		return
	}
	if body.Title != nil {
		l.Title = strings.TrimSpace(*body.Title)
	}
	if body.Color != nil {
		l.Color = *body.Color
	}
	l.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, wireLabel(l))
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.labels[chi.URLParam(r, "labelID")]
	if l == nil {
		writeError(w, http.StatusNotFound, "Label not found")
		return
	}
	if s.boardForLocked(w, l.BoardID, userID(r)) == nil {
		return
	}
	for _, c := range s.cards {
		c.Labels = without(c.Labels, l.ID)
	}
	delete(s.labels, l.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Label deleted"})
}

func (s *Server) labelCardLocked(w http.ResponseWriter, r *http.Request) (*model.Card, string) {
	var body struct {
		LabelID string `json:"labelId"`
	}
	if err := decodeBody(r, &body); err != nil || body.LabelID == "" {
		writeError(w, http.StatusBadRequest, "labelId is required")
		return nil, ""
	}
	c := s.cards[chi.URLParam(r, "cardID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "Card not found")
		return nil, ""
	}
	boardID := s.cardBoardLocked(c)
	if s.boardForLocked(w, boardID, userID(r)) == nil {
		return nil, ""
	}
	l := s.labels[body.LabelID]
	if l == nil || l.BoardID != boardID {
		writeError(w, http.StatusNotFound, "Label not found")
		return nil, ""
	}
	return c, l.ID
}

func (s *Server) handleAttachLabel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, labelID := s.labelCardLocked(w, r)
	if c == nil {
		return
	}
	c.Labels = model.IDSet(append(c.Labels, labelID))
	writeJSON(w, http.StatusOK, wireCard(c))
}

func (s *Server) handleDetachLabel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, labelID := s.labelCardLocked(w, r)
	if c == nil {
		return
	}
	c.Labels = without(c.Labels, labelID)
	writeJSON(w, http.StatusOK, wireCard(c))
}

// Comments.

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cards[chi.URLParam(r, "cardID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	if s.boardForLocked(w, s.cardBoardLocked(c), userID(r)) == nil {
		return
	}
	list := []*model.Comment{}
	for _, cm := range s.comments {
		if cm.CardID == c.ID {
			list = append(list, cm)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	out := make([]map[string]any, 0, len(list))
	for _, cm := range list {
		out = append(out, wireComment(cm))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cards[chi.URLParam(r, "cardID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	if s.boardForLocked(w, s.cardBoardLocked(c), userID(r)) == nil {
		return
	}
	now := s.now()
	cm := &model.Comment{ID: s.nextID(), CardID: c.ID, AuthorID: userID(r), Content: body.Content, CreatedAt: now, UpdatedAt: now}
	s.comments[cm.ID] = cm
	writeJSON(w, http.StatusCreated, wireComment(cm))
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "Content is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cm := s.comments[chi.URLParam(r, "commentID")]
	if cm == nil {
		writeError(w, http.StatusNotFound, "Comment not found")
		return
	}
	if cm.AuthorID != userID(r) {
		writeError(w, http.StatusForbidden, "Only the author can edit a comment")
		return
	}
	cm.Content = body.Content
	cm.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, wireComment(cm))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cm := s.comments[chi.URLParam(r, "commentID")]
	if cm == nil {
		writeError(w, http.StatusNotFound, "Comment not found")
		return
	}
	if cm.AuthorID != userID(r) {
		writeError(w, http.StatusForbidden, "Only the author can delete a comment")
		return
	}
	delete(s.comments, cm.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Comment deleted"})
}

// Search.

func pageParams(r *http.Request) (query string, limit, offset int) {
	q := r.URL.Query()
	query = strings.ToLower(strings.TrimSpace(q.Get("query")))
	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ = strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return query, limit, offset
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}

func (s *Server) handleSearchBoards(w http.ResponseWriter, r *http.Request) {
	query, limit, offset := pageParams(r)
	uid := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	hits := []*model.Board{}
	for _, b := range s.boards {
		if b.HasMember(uid) && strings.Contains(strings.ToLower(b.Title), query) {
			hits = append(hits, b)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	out := []map[string]any{}
	for _, b := range page(hits, limit, offset) {
		out = append(out, s.wireBoardLocked(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"boards": out, "total": len(hits), "limit": limit, "offset": offset})
}

func (s *Server) handleSearchCards(w http.ResponseWriter, r *http.Request) {
	query, limit, offset := pageParams(r)
	boardID := r.URL.Query().Get("boardId")
	listID := r.URL.Query().Get("listId")
	uid := userID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	hits := []*model.Card{}
	for _, c := range s.cards {
		bid := s.cardBoardLocked(c)
		b := s.boards[bid]
		if b == nil || !b.HasMember(uid) {
			continue
		}
		if (boardID != "" && bid != boardID) || (listID != "" && c.ListID != listID) {
			continue
		}
		if strings.Contains(strings.ToLower(c.Title), query) || strings.Contains(strings.ToLower(c.Description), query) {
			hits = append(hits, c)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	out := []map[string]any{}
	for _, c := range page(hits, limit, offset) {
		out = append(out, wireCard(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": out, "total": len(hits), "limit": limit, "offset": offset})
}

func without(in []string, id string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
