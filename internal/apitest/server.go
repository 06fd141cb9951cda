// Package apitest runs an in-memory boards backend over HTTP for tests. It speaks the same
// wire dialect as the production API (Mongo-style "_id", populated owner objects) so the
// client's normalization is exercised end to end.
package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"

	"kanban-cli/internal/model"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

var secret = []byte("apitest-secret")

type account struct {
	user     model.User
	password string
}

type failure struct {
	status  int
	message string
	once    bool
}

// Server is a fake backend. All exported helpers are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	seq         int
	now         func() time.Time
	users       map[string]*account // by id
	boards      map[string]*model.Board
	lists       map[string]*model.List
	cards       map[string]*model.Card
	labels      map[string]*model.Label
	comments    map[string]*model.Comment
	invitations map[string]*model.Invitation
	failures    map[string]failure
	hits        map[string]int
	gates       map[string]chan struct{}
	tokenTTL    time.Duration
}

func NewServer() *Server {
	s := &Server{
		now:         func() time.Time { return time.Now().UTC() },
		users:       map[string]*account{},
		boards:      map[string]*model.Board{},
		lists:       map[string]*model.List{},
		cards:       map[string]*model.Card{},
		labels:      map[string]*model.Label{},
		comments:    map[string]*model.Comment{},
		invitations: map[string]*model.Invitation{},
		failures:    map[string]failure{},
		hits:        map[string]int{},
		gates:       map[string]chan struct{}{},
		tokenTTL:    24 * time.Hour,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// URL of the API root (what the client uses as its base URL).
func (s *Server) BaseURL() string { return s.Server.URL + "/api" }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		s.handle(r, http.MethodPost, "/login", s.handleLogin)
		s.handle(r, http.MethodPost, "/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			s.handle(r, http.MethodGet, "/me", s.handleMe)
			s.handle(r, http.MethodPut, "/me", s.handleUpdateMe)

			s.handle(r, http.MethodGet, "/boards", s.handleListBoards)
			s.handle(r, http.MethodPost, "/boards", s.handleCreateBoard)
			s.handle(r, http.MethodGet, "/boards/invitations", s.handleListInvitations)
			s.handle(r, http.MethodGet, "/boards/{boardID}", s.handleGetBoard)
			s.handle(r, http.MethodPut, "/boards/{boardID}", s.handleUpdateBoard)
			s.handle(r, http.MethodDelete, "/boards/{boardID}", s.handleDeleteBoard)
			s.handle(r, http.MethodPost, "/boards/{boardID}/invite-by-email", s.handleInvite)
			s.handle(r, http.MethodPost, "/boards/{boardID}/remove-member", s.handleRemoveMember)
			s.handle(r, http.MethodPost, "/boards/{boardID}/leave", s.handleLeave)
			s.handle(r, http.MethodPost, "/boards/{boardID}/invitations/{invitationID}/accept", s.handleAnswerInvitation(model.InvitationAccepted))
			s.handle(r, http.MethodPost, "/boards/{boardID}/invitations/{invitationID}/reject", s.handleAnswerInvitation(model.InvitationRejected))

			s.handle(r, http.MethodGet, "/boards/{boardID}/lists", s.handleListLists)
			s.handle(r, http.MethodPost, "/boards/{boardID}/lists", s.handleCreateList)
			s.handle(r, http.MethodPut, "/boards/{boardID}/lists/{listID}", s.handleUpdateList)
			s.handle(r, http.MethodDelete, "/boards/{boardID}/lists/{listID}", s.handleDeleteList)
			s.handle(r, http.MethodPost, "/boards/{boardID}/lists/{listID}/cards", s.handleCreateCard)
			s.handle(r, http.MethodGet, "/lists/{listID}/cards", s.handleListCards)

			s.handle(r, http.MethodPut, "/cards/{cardID}", s.handleUpdateCard)
			s.handle(r, http.MethodDelete, "/cards/{cardID}", s.handleDeleteCard)
			s.handle(r, http.MethodPost, "/cards/{cardID}/move", s.handleMoveCard)

			s.handle(r, http.MethodGet, "/boards/{boardID}/labels", s.handleListLabels)
			s.handle(r, http.MethodPost, "/boards/{boardID}/labels", s.handleCreateLabel)
			s.handle(r, http.MethodPut, "/labels/{labelID}", s.handleUpdateLabel)
			s.handle(r, http.MethodDelete, "/labels/{labelID}", s.handleDeleteLabel)
			s.handle(r, http.MethodPost, "/cards/{cardID}/labels", s.handleAttachLabel)
			s.handle(r, http.MethodDelete, "/cards/{cardID}/labels", s.handleDetachLabel)

			s.handle(r, http.MethodGet, "/cards/{cardID}/comments", s.handleListComments)
			s.handle(r, http.MethodPost, "/cards/{cardID}/comments", s.handleCreateComment)
			s.handle(r, http.MethodPut, "/comments/{commentID}", s.handleUpdateComment)
			s.handle(r, http.MethodDelete, "/comments/{commentID}", s.handleDeleteComment)

			s.handle(r, http.MethodGet, "/search/boards", s.handleSearchBoards)
			s.handle(r, http.MethodGet, "/search/cards", s.handleSearchCards)
		})
	})
	return r
}

// handle registers h under "METHOD /pattern" (the key used by Fail, Hits and Gate).
func (s *Server) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	key := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.hits[key]++
		gate := s.gates[key]
		f, failing := s.failures[key]
		if failing && f.once {
			delete(s.failures, key)
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-req.Context().Done():
				return
			}
		}
		if failing {
			writeError(w, f.status, f.message)
			return
		}
		h(w, req)
	}))
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) { return secret, nil })
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		s.mu.Lock()
		_, ok := s.users[claims.Subject]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyUserID, claims.Subject)))
	})
}

func userID(r *http.Request) string {
	v, _ := r.Context().Value(contextKeyUserID).(string)
	return v
}

// Fail makes every request to route answer with status and message until ClearFailures.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// FailNext makes only the next request to route fail.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message, once: true}
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]failure{}
}

// Gate holds requests to route until the returned release func is called.
func (s *Server) Gate(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Hits returns how many requests reached route (including injected failures).
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits counts every routed request.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

func (s *Server) nextID() string {
	s.seq++
	return fmt.Sprintf("%024x", 0x65a000000000+s.seq)
}

// Token mints a bearer token for userID.
func (s *Server) Token(userID string) string {
	s.mu.Lock()
	ttl := s.tokenTTL
	now := s.now()
	s.mu.Unlock()
	return mintToken(userID, now, ttl)
}

func mintToken(userID string, now time.Time, ttl time.Duration) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := tok.SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// SeedUser registers an account and returns its id.
func (s *Server) SeedUser(email, password, username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	s.users[id] = &account{user: model.User{ID: id, Email: email, Username: username}, password: password}
	return id
}

func (s *Server) SeedBoard(ownerID, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	id := s.nextID()
	s.boards[id] = &model.Board{ID: id, Title: title, Owner: ownerID, Members: []string{ownerID}, CreatedAt: now, UpdatedAt: now}
	return id
}

// AddMember adds userID to a board without an invitation round trip.
func (s *Server) AddMember(boardID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.boards[boardID]; b != nil && !b.HasMember(userID) {
		b.Members = append(b.Members, userID)
	}
}

func (s *Server) SeedList(boardID, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createListLocked(boardID, title).ID
}

func (s *Server) SeedCard(listID, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCardLocked(listID, title, "").ID
}

func (s *Server) Board(id string) (model.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return model.Board{}, false
	}
	return *b, true
}

func (s *Server) List(id string) (model.List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[id]
	if !ok {
		return model.List{}, false
	}
	return *l, true
}

func (s *Server) Card(id string) (model.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return model.Card{}, false
	}
	return *c, true
}

// CardsInList returns the cards of a list sorted by position.
func (s *Server) CardsInList(listID string) []model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Card{}
	for _, c := range s.sortedCardsLocked(listID) {
		out = append(out, *c)
	}
	return out
}

func (s *Server) createListLocked(boardID, title string) *model.List {
	now := s.now()
	pos := 0
	for _, l := range s.lists {
		if l.BoardID == boardID {
			pos++
		}
	}
	l := &model.List{ID: s.nextID(), BoardID: boardID, Title: title, Position: pos, CreatedAt: now, UpdatedAt: now}
	s.lists[l.ID] = l
	return l
}

func (s *Server) createCardLocked(listID, title, createdBy string) *model.Card {
	now := s.now()
	c := &model.Card{
		ID:        s.nextID(),
		ListID:    listID,
		Title:     title,
		Position:  len(s.sortedCardsLocked(listID)),
		CreatedBy: createdBy,
		Assignees: []string{},
		Labels:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cards[c.ID] = c
	return c
}

func (s *Server) sortedCardsLocked(listID string) []*model.Card {
	out := []*model.Card{}
	for _, c := range s.cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) sortedListsLocked(boardID string) []*model.List {
	out := []*model.List{}
	for _, l := range s.lists {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) renumberCardsLocked(listID string) {
	for i, c := range s.sortedCardsLocked(listID) {
		c.Position = i
	}
}

func (s *Server) renumberListsLocked(boardID string) {
	for i, l := range s.sortedListsLocked(boardID) {
		l.Position = i
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
