package mutate

import (
	"sort"
	"sync"

	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

// entityLocks serializes mutations per entity. Different entities never block each other.
// Keys taken in one call are acquired board, then list, then card, by id, so callers that
// need several keys cannot deadlock against each other.
type entityLocks struct {
	mu   sync.Mutex
	held map[store.Key]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{held: map[store.Key]*lockEntry{}}
}

func kindRank(k model.EntityKind) int {
	switch k {
	case model.KindBoard:
		return 0
	case model.KindList:
		return 1
	default:
		return 2
	}
}

// lock blocks until every key is held and returns the matching unlock func.
func (l *entityLocks) lock(keys ...store.Key) (unlock func()) {
	uniq := make([]store.Key, 0, len(keys))
	seen := map[store.Key]bool{}
	for _, k := range keys {
		if k.ID == "" || seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, k)
	}
	sort.Slice(uniq, func(i, j int) bool {
		ri, rj := kindRank(uniq[i].Kind), kindRank(uniq[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return uniq[i].ID < uniq[j].ID
	})

	entries := make([]*lockEntry, 0, len(uniq))
	for _, k := range uniq {
		l.mu.Lock()
		e := l.held[k]
		if e == nil {
			e = &lockEntry{}
			l.held[k] = e
		}
		e.refs++
		l.mu.Unlock()

		e.mu.Lock()
		entries = append(entries, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(uniq) - 1; i >= 0; i-- {
				entries[i].mu.Unlock()
				l.mu.Lock()
				entries[i].refs--
				if entries[i].refs == 0 {
					delete(l.held, uniq[i])
				}
				l.mu.Unlock()
			}
		})
	}
}

// busy reports whether any mutation currently holds or waits for key.
func (l *entityLocks) busy(key store.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key] != nil
}
