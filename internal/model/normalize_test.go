package model

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestRef_DecodesStringOrObject(t *testing.T) {
	var payload struct {
		Owner   Ref   `json:"owner"`
		Members []Ref `json:"members"`
	}
	raw := `{"owner":{"_id":"u1","email":"a@example.com"},"members":["u2",{"id":"u3"},null," u2 "]}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Owner != "u1" {
		t.Fatalf("owner = %q", payload.Owner)
	}
	if got, want := Refs(payload.Members), []string{"u2", "u3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
}

func TestRef_RejectsNumbers(t *testing.T) {
	var r Ref
	if err := json.Unmarshal([]byte(`42`), &r); err == nil {
		t.Fatalf("expected error for numeric ref")
	}
}

func TestNormalizeBoard_OwnerAlwaysMember(t *testing.T) {
	b := NormalizeBoard(Board{ID: " b1 ", Title: " Plan ", Owner: "u1", Members: []string{"u2", "u1", ""}})
	if b.ID != "b1" || b.Title != "Plan" {
		t.Fatalf("unexpected trim: %#v", b)
	}
	if want := []string{"u1", "u2"}; !reflect.DeepEqual(b.Members, want) {
		t.Fatalf("members = %v, want %v", b.Members, want)
	}
	if !b.HasMember("u2") || b.HasMember("") || b.HasMember("u9") {
		t.Fatalf("HasMember mismatch for %v", b.Members)
	}
}

func TestNormalizeCard_ClampsAndDedupes(t *testing.T) {
	blank := "  "
	c := NormalizeCard(Card{ID: "c1", Position: -3, Labels: []string{"l1", "l1", " "}, Color: &blank})
	if c.Position != 0 {
		t.Fatalf("position = %d", c.Position)
	}
	if want := []string{"l1"}; !reflect.DeepEqual(c.Labels, want) {
		t.Fatalf("labels = %v", c.Labels)
	}
	if c.Color != nil {
		t.Fatalf("blank color should normalize to nil")
	}
}

func TestParseDue(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-03-01T10:30:00Z", time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2026-03-01T10:30:00+02:00", time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDue(tc.in)
		if err != nil {
			t.Fatalf("ParseDue(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseDue(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if got, err := ParseDue(""); err != nil || got != nil {
		t.Fatalf("empty due: %v %v", got, err)
	}
	if _, err := ParseDue("next week"); err == nil {
		t.Fatalf("expected error")
	}
}
