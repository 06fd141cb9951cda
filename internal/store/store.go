package store

import (
	"slices"
	"strings"
	"sync"

	"kanban-cli/internal/model"
)

// Key names one entity held by the store.
type Key struct {
	Kind model.EntityKind
	ID   string
}

func BoardKey(id string) Key { return Key{Kind: model.KindBoard, ID: id} }
func ListKey(id string) Key  { return Key{Kind: model.KindList, ID: id} }
func CardKey(id string) Key  { return Key{Kind: model.KindCard, ID: id} }

// Entities is the in-memory snapshot of boards, lists and cards for the open workspace.
//
// Every exported method is atomic with respect to every other. Projections are computed
// from the canonical maps on each call, so a write is visible to the next read.
// Writes are expected to go through the mutation coordinator (internal/mutate).
type Entities struct {
	mu      sync.RWMutex
	version uint64

	boards map[string]model.Board
	lists  map[string]model.List
	cards  map[string]model.Card
}

func NewEntities() *Entities {
	return &Entities{
		boards: map[string]model.Board{},
		lists:  map[string]model.List{},
		cards:  map[string]model.Card{},
	}
}

// Version increases on every write. Display code uses it to notice changes cheaply.
func (s *Entities) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Entities) Board(id string) (model.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[strings.TrimSpace(id)]
	return cloneBoard(b), ok
}

func (s *Entities) List(id string) (model.List, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[strings.TrimSpace(id)]
	return cloneList(l), ok
}

func (s *Entities) Card(id string) (model.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[strings.TrimSpace(id)]
	return cloneCard(c), ok
}

// Boards returns all boards ordered by title, then id.
func (s *Entities) Boards() []model.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, cloneBoard(b))
	}
	slices.SortFunc(out, func(a, b model.Board) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// ListsForBoard returns the board's lists sorted ascending by position (id breaks ties).
func (s *Entities) ListsForBoard(boardID string) []model.List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listsForBoard(boardID)
}

// CardsForList returns the list's cards sorted ascending by position (id breaks ties).
func (s *Entities) CardsForList(listID string) []model.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cardsForList(listID)
}

// CardsForBoard returns every card of the board, grouped by list order then card order.
func (s *Entities) CardsForBoard(boardID string) []model.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Card{}
	for _, l := range s.listsForBoard(boardID) {
		out = append(out, s.cardsForList(l.ID)...)
	}
	return out
}

// BoardIDForCard resolves the board a card belongs to through its list.
func (s *Entities) BoardIDForCard(cardID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[strings.TrimSpace(cardID)]
	if !ok {
		return "", false
	}
	l, ok := s.lists[c.ListID]
	if !ok {
		return "", false
	}
	return l.BoardID, true
}

// Upsert inserts or replaces a board, list or card by id. Positions are stored as given.
// Values of any other type are ignored.
func (s *Entities) Upsert(entity any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(entity)
}

// Removed carries the entities dropped by a Remove call, including cascaded dependents.
type Removed struct {
	Boards []model.Board
	Lists  []model.List
	Cards  []model.Card
}

func (r Removed) Empty() bool {
	return len(r.Boards) == 0 && len(r.Lists) == 0 && len(r.Cards) == 0
}

// Remove deletes an entity. Removing a board removes its lists and their cards; removing a
// list removes its cards. ok is false when the entity was not present.
func (s *Entities) Remove(kind model.EntityKind, id string) (Removed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(kind, id)
}

// Batch runs fn with exclusive access to the store. Readers never observe a partially
// applied batch.
func (s *Entities) Batch(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s})
}

// Tx is the write view handed to Batch callbacks. It must not escape the callback.
type Tx struct {
	s *Entities
}

func (tx *Tx) Upsert(entity any) { tx.s.upsert(entity) }

func (tx *Tx) Remove(kind model.EntityKind, id string) (Removed, bool) {
	return tx.s.remove(kind, id)
}

func (tx *Tx) Board(id string) (model.Board, bool) {
	b, ok := tx.s.boards[strings.TrimSpace(id)]
	return cloneBoard(b), ok
}

func (tx *Tx) List(id string) (model.List, bool) {
	l, ok := tx.s.lists[strings.TrimSpace(id)]
	return cloneList(l), ok
}

func (tx *Tx) Card(id string) (model.Card, bool) {
	c, ok := tx.s.cards[strings.TrimSpace(id)]
	return cloneCard(c), ok
}

func (tx *Tx) ListsForBoard(boardID string) []model.List { return tx.s.listsForBoard(boardID) }
func (tx *Tx) CardsForList(listID string) []model.Card   { return tx.s.cardsForList(listID) }

// ReplaceBoard swaps the board and its whole subtree for the given hydration result.
func (tx *Tx) ReplaceBoard(b model.Board, lists []model.List, cards []model.Card) {
	tx.s.remove(model.KindBoard, b.ID)
	tx.s.upsert(b)
	for _, l := range lists {
		tx.s.upsert(l)
	}
	for _, c := range cards {
		tx.s.upsert(c)
	}
}

func (s *Entities) upsert(entity any) {
	switch e := entity.(type) {
	case model.Board:
		e = model.NormalizeBoard(e)
		if e.ID == "" {
			return
		}
		s.boards[e.ID] = cloneBoard(e)
	case *model.Board:
		if e != nil {
			s.upsert(*e)
		}
		return
	case model.List:
		e = model.NormalizeList(e)
		if e.ID == "" {
			return
		}
		s.lists[e.ID] = cloneList(e)
	case *model.List:
		if e != nil {
			s.upsert(*e)
		}
		return
	case model.Card:
		e = model.NormalizeCard(e)
		if e.ID == "" {
			return
		}
		s.cards[e.ID] = cloneCard(e)
	case *model.Card:
		if e != nil {
			s.upsert(*e)
		}
		return
	default:
		return
	}
	s.version++
}

func (s *Entities) remove(kind model.EntityKind, id string) (Removed, bool) {
	id = strings.TrimSpace(id)
	var out Removed
	switch kind {
	case model.KindBoard:
		b, ok := s.boards[id]
		if !ok {
			return out, false
		}
		for _, l := range s.listsForBoard(id) {
			r, _ := s.remove(model.KindList, l.ID)
			out.Lists = append(out.Lists, r.Lists...)
			out.Cards = append(out.Cards, r.Cards...)
		}
		delete(s.boards, id)
		out.Boards = append(out.Boards, b)
	case model.KindList:
		l, ok := s.lists[id]
		if !ok {
			return out, false
		}
		for _, c := range s.cardsForList(id) {
			delete(s.cards, c.ID)
			out.Cards = append(out.Cards, c)
		}
		delete(s.lists, id)
		out.Lists = append(out.Lists, l)
	case model.KindCard:
		c, ok := s.cards[id]
		if !ok {
			return out, false
		}
		delete(s.cards, id)
		out.Cards = append(out.Cards, c)
	default:
		return out, false
	}
	s.version++
	return out, true
}

func (s *Entities) listsForBoard(boardID string) []model.List {
	boardID = strings.TrimSpace(boardID)
	out := []model.List{}
	for _, l := range s.lists {
		if l.BoardID == boardID {
			out = append(out, cloneList(l))
		}
	}
	SortListsByPosition(out)
	return out
}

func (s *Entities) cardsForList(listID string) []model.Card {
	listID = strings.TrimSpace(listID)
	out := []model.Card{}
	for _, c := range s.cards {
		if c.ListID == listID {
			out = append(out, cloneCard(c))
		}
	}
	SortCardsByPosition(out)
	return out
}
