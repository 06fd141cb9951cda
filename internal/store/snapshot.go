package store

import (
	"maps"
	"slices"

	"kanban-cli/internal/model"
)

// Snapshot is a deep, immutable copy of the store contents.
type Snapshot struct {
	boards map[string]model.Board
	lists  map[string]model.List
	cards  map[string]model.Card
}

// Snapshot captures the full store state.
func (s *Entities) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Snapshot captures the store state as seen inside the batch, before the batch's own writes
// when called first.
func (tx *Tx) Snapshot() Snapshot { return tx.s.snapshot() }

func (s *Entities) snapshot() Snapshot {
	return Snapshot{
		boards: cloneMap(s.boards, cloneBoard),
		lists:  cloneMap(s.lists, cloneList),
		cards:  cloneMap(s.cards, cloneCard),
	}
}

// Restore replaces the store contents with snap in one step.
func (s *Entities) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = cloneMap(snap.boards, cloneBoard)
	s.lists = cloneMap(snap.lists, cloneList)
	s.cards = cloneMap(snap.cards, cloneCard)
	s.version++
}

// RestoreScope puts the entities named by keys back to their state in snap: entities present
// in snap are rewritten, entities absent from snap are removed (without cascade). Entities not
// named by keys are left alone, so concurrent writes to other entities survive.
func (s *Entities) RestoreScope(snap Snapshot, keys []Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreScope(snap, keys)
}

func (tx *Tx) RestoreScope(snap Snapshot, keys []Key) { tx.s.restoreScope(snap, keys) }

func (s *Entities) restoreScope(snap Snapshot, keys []Key) {
	for _, k := range keys {
		switch k.Kind {
		case model.KindBoard:
			if b, ok := snap.boards[k.ID]; ok {
				s.boards[k.ID] = cloneBoard(b)
			} else {
				delete(s.boards, k.ID)
			}
		case model.KindList:
			if l, ok := snap.lists[k.ID]; ok {
				s.lists[k.ID] = cloneList(l)
			} else {
				delete(s.lists, k.ID)
			}
		case model.KindCard:
			if c, ok := snap.cards[k.ID]; ok {
				s.cards[k.ID] = cloneCard(c)
			} else {
				delete(s.cards, k.ID)
			}
		}
	}
	s.version++
}

func (snap Snapshot) Board(id string) (model.Board, bool) {
	b, ok := snap.boards[id]
	return cloneBoard(b), ok
}

func (snap Snapshot) List(id string) (model.List, bool) {
	l, ok := snap.lists[id]
	return cloneList(l), ok
}

func (snap Snapshot) Card(id string) (model.Card, bool) {
	c, ok := snap.cards[id]
	return cloneCard(c), ok
}

// Len returns the number of boards, lists and cards held by the snapshot.
func (snap Snapshot) Len() (boards, lists, cards int) {
	return len(snap.boards), len(snap.lists), len(snap.cards)
}

// Equal reports whether two snapshots hold deep-equal contents.
func (snap Snapshot) Equal(other Snapshot) bool {
	return maps.EqualFunc(snap.boards, other.boards, boardsEqual) &&
		maps.EqualFunc(snap.lists, other.lists, listsEqual) &&
		maps.EqualFunc(snap.cards, other.cards, cardsEqual)
}

func cloneMap[T any](in map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func cloneBoard(b model.Board) model.Board {
	b.Members = slices.Clone(b.Members)
	return b
}

func cloneList(l model.List) model.List {
	l.Color = cloneStrPtr(l.Color)
	return l
}

func cloneCard(c model.Card) model.Card {
	c.Assignees = slices.Clone(c.Assignees)
	c.Labels = slices.Clone(c.Labels)
	c.Color = cloneStrPtr(c.Color)
	if c.DueDate != nil {
		d := *c.DueDate
		c.DueDate = &d
	}
	return c
}

func cloneStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func boardsEqual(a, b model.Board) bool {
	return a.ID == b.ID && a.Title == b.Title && a.Owner == b.Owner &&
		slices.Equal(a.Members, b.Members) &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

func listsEqual(a, b model.List) bool {
	return a.ID == b.ID && a.BoardID == b.BoardID && a.Title == b.Title &&
		a.Position == b.Position && strPtrEqual(a.Color, b.Color) &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

func cardsEqual(a, b model.Card) bool {
	if (a.DueDate == nil) != (b.DueDate == nil) {
		return false
	}
	if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
		return false
	}
	return a.ID == b.ID && a.ListID == b.ListID && a.Title == b.Title &&
		a.Description == b.Description && a.Position == b.Position &&
		a.CreatedBy == b.CreatedBy && a.Completed == b.Completed &&
		slices.Equal(a.Assignees, b.Assignees) && slices.Equal(a.Labels, b.Labels) &&
		strPtrEqual(a.Color, b.Color) &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
