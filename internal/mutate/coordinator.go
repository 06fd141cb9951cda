// Package mutate sequences optimistic local writes against the backend: apply to the entity
// store, call the remote, then keep the server's answer or roll the store back.
package mutate

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kanban-cli/internal/api"
	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
	"kanban-cli/internal/validation"
)

// TempIDPrefix marks ids of entities that exist only locally until the backend confirms them.
const TempIDPrefix = "tmp-"

func IsTempID(id string) bool { return strings.HasPrefix(id, TempIDPrefix) }

type Phase string

const (
	PhaseApplied    Phase = "applied"
	PhaseConfirmed  Phase = "confirmed"
	PhaseRolledBack Phase = "rolledBack"
)

// Event describes one step of a mutation. ID is the entity id at that step; for creates,
// TempID carries the optimistic id and ID switches to the server id once confirmed.
type Event struct {
	Op     string
	Kind   model.EntityKind
	ID     string
	TempID string
	Phase  Phase
	Err    error
}

type Coordinator struct {
	Store  *store.Entities
	Remote api.Backend
	Cache  *store.Cache
	Log    *zap.Logger

	// Actor returns the signed-in user id for local membership checks. Nil or "" skips
	// the checks and leaves them to the backend.
	Actor func() string

	locks    *entityLocks
	validate *validation.Validator
	newID    func() string

	aliasMu sync.Mutex
	aliases map[string]string

	subMu   sync.Mutex
	subs    map[int]*subscription
	nextSub int
}

type Option func(*Coordinator)

func WithStore(s *store.Entities) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.Store = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.Log = l
		}
	}
}

// WithCache persists every hydrated or confirmed board for offline display.
func WithCache(cache store.Cache) Option {
	return func(c *Coordinator) { c.Cache = &cache }
}

func WithActor(actor func() string) Option {
	return func(c *Coordinator) { c.Actor = actor }
}

// WithIDGenerator overrides temp id generation (tests).
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) {
		if gen != nil {
			c.newID = gen
		}
	}
}

func New(remote api.Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		Store:    store.NewEntities(),
		Remote:   remote,
		Log:      zap.NewNop(),
		locks:    newEntityLocks(),
		validate: validation.Default(),
		newID:    func() string { return TempIDPrefix + uuid.NewString() },
		aliases:  map[string]string{},
		subs:     map[int]*subscription{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type subscription struct {
	mu     sync.Mutex
	active bool
	fn     func(Event)
}

// Subscribe registers fn for mutation events. After the returned func is called fn is never
// invoked again, even for mutations that were already in flight. fn must not call the
// returned unsubscribe func itself.
func (c *Coordinator) Subscribe(fn func(Event)) (unsubscribe func()) {
	sub := &subscription{active: true, fn: fn}
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.subMu.Unlock()
	return func() {
		sub.mu.Lock()
		sub.active = false
		sub.mu.Unlock()
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Coordinator) emit(ev Event) {
	c.subMu.Lock()
	subs := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.subMu.Unlock()
	for _, s := range subs {
		s.mu.Lock()
		if s.active {
			s.fn(ev)
		}
		s.mu.Unlock()
	}
}

func (c *Coordinator) actor() string {
	if c.Actor == nil {
		return ""
	}
	return strings.TrimSpace(c.Actor())
}

// resolve maps a confirmed temp id to its server id.
func (c *Coordinator) resolve(id string) string {
	id = strings.TrimSpace(id)
	c.aliasMu.Lock()
	defer c.aliasMu.Unlock()
	if real, ok := c.aliases[id]; ok {
		return real
	}
	return id
}

func (c *Coordinator) alias(tempID, realID string) {
	c.aliasMu.Lock()
	c.aliases[tempID] = realID
	c.aliasMu.Unlock()
}

// acquire locks the entity named by id. A caller that waited on a temp id whose create got
// confirmed meanwhile ends up holding the server id instead.
func (c *Coordinator) acquire(kind model.EntityKind, id string) (string, func()) {
	for {
		rid := c.resolve(id)
		unlock := c.locks.lock(store.Key{Kind: kind, ID: rid})
		if c.resolve(id) == rid {
			return rid, unlock
		}
		unlock()
	}
}

// unsaved is the error for a temp id with no server id yet. While its create is in flight
// the entity is still stored; after the create rolled back it is gone.
func (c *Coordinator) unsaved(kind model.EntityKind, id string) error {
	var ok bool
	switch kind {
	case model.KindBoard:
		_, ok = c.Store.Board(id)
	case model.KindList:
		_, ok = c.Store.List(id)
	case model.KindCard:
		_, ok = c.Store.Card(id)
	}
	if ok {
		return ValidationError{Field: string(kind) + "Id", Message: "is not saved yet"}
	}
	return NotFoundError{Kind: string(kind), ID: id}
}

// Pending reports whether a mutation on the entity is in flight or queued.
func (c *Coordinator) Pending(kind model.EntityKind, id string) bool {
	return c.locks.busy(store.Key{Kind: kind, ID: c.resolve(id)})
}

// remote runs one backend call. The call is detached from the caller's cancellation so the
// store always gets reconciled; transport timeouts still apply. A panicking remote becomes
// an error.
func (c *Coordinator) remote(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.Log.Error("remote call panicked", zap.String("op", op), zap.Any("panic", r))
			err = fmt.Errorf("%s: unexpected failure: %v", op, r)
		}
	}()
	return fn(context.WithoutCancel(ctx))
}

// undo is what a failed mutation puts back. Entities named in whole are restored
// wholesale from snap; entities named in positions only get their position back, so a
// sibling that was merely renumbered keeps any concurrent edit to its other fields.
type undo struct {
	snap      store.Snapshot
	whole     []store.Key
	positions []store.Key
}

func (c *Coordinator) rollback(u undo) {
	c.Store.Batch(func(tx *store.Tx) {
		lists, boards := u.parents(tx)
		tx.RestoreScope(u.snap, u.whole)
		for _, k := range u.positions {
			switch k.Kind {
			case model.KindList:
				old, ok := u.snap.List(k.ID)
				cur, ok2 := tx.List(k.ID)
				if ok && ok2 {
					cur.Position = old.Position
					tx.Upsert(cur)
				}
			case model.KindCard:
				old, ok := u.snap.Card(k.ID)
				cur, ok2 := tx.Card(k.ID)
				if ok && ok2 {
					cur.Position = old.Position
					tx.Upsert(cur)
				}
			}
		}
		// A restored child whose parent went away meanwhile would dangle.
		for _, k := range u.whole {
			switch k.Kind {
			case model.KindCard:
				if cur, ok := tx.Card(k.ID); ok {
					if _, ok := tx.List(cur.ListID); !ok {
						tx.Remove(model.KindCard, k.ID)
					}
				}
			case model.KindList:
				if cur, ok := tx.List(k.ID); ok {
					if _, ok := tx.Board(cur.BoardID); !ok {
						tx.Remove(model.KindList, k.ID)
					}
				}
			}
		}
		u.closeGaps(tx, lists, boards)
	})
}

// parents collects every list whose cards and every board whose lists the undo touches,
// both before and after the mutation.
func (u undo) parents(tx *store.Tx) (lists, boards map[string]bool) {
	lists, boards = map[string]bool{}, map[string]bool{}
	for _, k := range append(append([]store.Key(nil), u.whole...), u.positions...) {
		switch k.Kind {
		case model.KindCard:
			if cd, ok := u.snap.Card(k.ID); ok {
				lists[cd.ListID] = true
			}
			if cd, ok := tx.Card(k.ID); ok {
				lists[cd.ListID] = true
			}
		case model.KindList:
			if l, ok := u.snap.List(k.ID); ok {
				boards[l.BoardID] = true
			}
			if l, ok := tx.List(k.ID); ok {
				boards[l.BoardID] = true
			}
		}
	}
	return lists, boards
}

// closeGaps renumbers the touched lists and boards after a restore. Entities created or
// moved in meanwhile may have taken a restored position; on a tie the concurrent entity
// stays first, which is where the backend put it.
func (u undo) closeGaps(tx *store.Tx, lists, boards map[string]bool) {
	restored := map[store.Key]bool{}
	for _, k := range u.whole {
		restored[k] = true
	}
	for _, k := range u.positions {
		restored[k] = true
	}
	rank := func(k store.Key) int {
		if restored[k] {
			return 1
		}
		return 0
	}
	for listID := range lists {
		cards := tx.CardsForList(listID)
		slices.SortStableFunc(cards, func(a, b model.Card) int {
			if d := cmp.Compare(a.Position, b.Position); d != 0 {
				return d
			}
			if d := cmp.Compare(rank(store.CardKey(a.ID)), rank(store.CardKey(b.ID))); d != 0 {
				return d
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for _, cd := range store.RenumberCards(cards) {
			tx.Upsert(cd)
		}
	}
	for boardID := range boards {
		ls := tx.ListsForBoard(boardID)
		slices.SortStableFunc(ls, func(a, b model.List) int {
			if d := cmp.Compare(a.Position, b.Position); d != 0 {
				return d
			}
			if d := cmp.Compare(rank(store.ListKey(a.ID)), rank(store.ListKey(b.ID))); d != 0 {
				return d
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for _, l := range store.RenumberLists(ls) {
			tx.Upsert(l)
		}
	}
}

// fail rolls back, logs and notifies. It returns err unchanged so the backend's message
// reaches the caller verbatim.
func (c *Coordinator) fail(u undo, ev Event, err error) error {
	c.rollback(u)
	c.Log.Warn("mutation rolled back",
		zap.String("op", ev.Op),
		zap.String("kind", string(ev.Kind)),
		zap.String("id", ev.ID),
		zap.Error(err),
	)
	ev.Phase = PhaseRolledBack
	ev.Err = err
	c.emit(ev)
	return err
}

func (c *Coordinator) confirm(ev Event, boardID string) {
	c.Log.Debug("mutation confirmed", zap.String("op", ev.Op), zap.String("kind", string(ev.Kind)), zap.String("id", ev.ID))
	ev.Phase = PhaseConfirmed
	c.emit(ev)
	c.persist(boardID)
}

func (c *Coordinator) applied(ev Event) {
	ev.Phase = PhaseApplied
	c.emit(ev)
}

// persist writes the board's current subtree to the offline cache. Failures only log.
func (c *Coordinator) persist(boardID string) {
	if c.Cache == nil || boardID == "" || IsTempID(boardID) {
		return
	}
	b, ok := c.Store.Board(boardID)
	if !ok {
		return
	}
	snap := store.BoardSnapshot{Board: b, Lists: c.Store.ListsForBoard(boardID), Cards: c.Store.CardsForBoard(boardID)}
	if err := c.Cache.SaveBoard(context.Background(), snap); err != nil {
		c.Log.Warn("offline cache write failed", zap.String("board", boardID), zap.Error(err))
	}
}

// checkTitle trims and validates a required title.
func (c *Coordinator) checkTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if err := c.validate.Var("title", title, "required,max=512"); err != nil {
		return "", validationFrom(err)
	}
	return title, nil
}

func keysForRemoved(r store.Removed) []store.Key {
	keys := make([]store.Key, 0, len(r.Boards)+len(r.Lists)+len(r.Cards))
	for _, b := range r.Boards {
		keys = append(keys, store.BoardKey(b.ID))
	}
	for _, l := range r.Lists {
		keys = append(keys, store.ListKey(l.ID))
	}
	for _, cd := range r.Cards {
		keys = append(keys, store.CardKey(cd.ID))
	}
	return keys
}

func cardKeys(cards []model.Card) []store.Key {
	keys := make([]store.Key, 0, len(cards))
	for _, cd := range cards {
		keys = append(keys, store.CardKey(cd.ID))
	}
	return keys
}

func listKeys(lists []model.List) []store.Key {
	keys := make([]store.Key, 0, len(lists))
	for _, l := range lists {
		keys = append(keys, store.ListKey(l.ID))
	}
	return keys
}
