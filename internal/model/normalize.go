package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
)

// Ref is a reference to another entity as it appears on the wire. Depending on the
// endpoint the backend sends either a bare id string or a populated object
// ({"_id": "...", "email": ...}); both decode to the id.
type Ref string

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(strings.TrimSpace(s))
		return nil
	}
	if b[0] == '{' {
		var obj struct {
			MongoID string `json:"_id"`
			ID      string `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		id := strings.TrimSpace(obj.MongoID)
		if id == "" {
			id = strings.TrimSpace(obj.ID)
		}
		*r = Ref(id)
		return nil
	}
	return errors.New("ref: expected string or object")
}

// Refs converts wire refs to a normalized id set (trimmed, deduplicated, order kept).
func Refs(in []Ref) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		out = append(out, string(r))
	}
	return IDSet(out)
}

// IDSet trims ids, drops blanks and duplicates, and keeps first-seen order.
func IDSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ParseDue parses the due dates the backend emits: RFC3339 timestamps or plain dates.
func ParseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("invalid due date: " + s)
}

// NormalizeBoard returns b in canonical shape: trimmed fields, a member set that always
// contains the owner (owner first).
func NormalizeBoard(b Board) Board {
	b.ID = strings.TrimSpace(b.ID)
	b.Title = strings.TrimSpace(b.Title)
	b.Owner = strings.TrimSpace(b.Owner)
	members := b.Members
	if b.Owner != "" {
		members = append([]string{b.Owner}, members...)
	}
	b.Members = IDSet(members)
	return b
}

func NormalizeList(l List) List {
	l.ID = strings.TrimSpace(l.ID)
	l.BoardID = strings.TrimSpace(l.BoardID)
	l.Title = strings.TrimSpace(l.Title)
	if l.Position < 0 {
		l.Position = 0
	}
	l.Color = normalizeColor(l.Color)
	return l
}

func NormalizeCard(c Card) Card {
	c.ID = strings.TrimSpace(c.ID)
	c.ListID = strings.TrimSpace(c.ListID)
	c.Title = strings.TrimSpace(c.Title)
	c.CreatedBy = strings.TrimSpace(c.CreatedBy)
	if c.Position < 0 {
		c.Position = 0
	}
	c.Assignees = IDSet(c.Assignees)
	c.Labels = IDSet(c.Labels)
	c.Color = normalizeColor(c.Color)
	return c
}

func normalizeColor(c *string) *string {
	if c == nil {
		return nil
	}
	v := strings.TrimSpace(*c)
	if v == "" {
		return nil
	}
	return &v
}

// SortedCopy returns a sorted copy of ids, used when comparing sets.
func SortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
