package tui

import (
	"strings"
	"testing"
	"time"

	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

func seededStore() *store.Entities {
	s := store.NewEntities()
	s.Upsert(model.Board{ID: "b1", Title: "Roadmap"})
	s.Upsert(model.List{ID: "l1", BoardID: "b1", Title: "Todo", Position: 0})
	s.Upsert(model.List{ID: "l2", BoardID: "b1", Title: "Done", Position: 1})
	s.Upsert(model.Card{ID: "c1", ListID: "l1", Title: "Write docs", Position: 0})
	s.Upsert(model.Card{ID: "c2", ListID: "l1", Title: "Fix login", Position: 1})
	s.Upsert(model.Card{ID: "c3", ListID: "l2", Title: "Ship it", Position: 0, Completed: true})
	return s
}

func TestBoardColumns_ClampFollowsCardID(t *testing.T) {
	s := seededStore()
	cols := buildBoardColumns(s, "b1")

	sel := cols.clamp(boardSelection{CardID: "c2"})
	if sel.Col != 0 || sel.Card != 1 {
		t.Fatalf("expected c2 at (0,1), got (%d,%d)", sel.Col, sel.Card)
	}

	// Move c2 into the other list; the selection follows it.
	s.Upsert(model.Card{ID: "c2", ListID: "l2", Title: "Fix login", Position: 1})
	cols = buildBoardColumns(s, "b1")
	sel = cols.clamp(sel)
	if sel.Col != 1 || sel.Card != 1 || sel.CardID != "c2" {
		t.Fatalf("expected c2 at (1,1), got %+v", sel)
	}
}

func TestBoardColumns_ClampDropsMissingCard(t *testing.T) {
	cols := buildBoardColumns(seededStore(), "b1")
	sel := cols.clamp(boardSelection{Col: 0, Card: 5, CardID: "gone"})
	if sel.Col != 0 || sel.Card != 1 || sel.CardID != "c2" {
		t.Fatalf("expected clamp to the last card of the column, got %+v", sel)
	}
}

func TestBoardColumns_EmptyBoard(t *testing.T) {
	cols := buildBoardColumns(store.NewEntities(), "nope")
	if _, ok := cols.selectedCard(boardSelection{}); ok {
		t.Fatalf("expected no selected card on an empty board")
	}
	out := renderBoardColumns(cols, boardSelection{}, columnsRender{colWidth: 20}, 60, 5)
	if !strings.Contains(out, "No lists yet") {
		t.Fatalf("expected empty-board hint, got %q", out)
	}
}

func TestFirstVisibleColumn(t *testing.T) {
	cases := []struct {
		total, focused, visible, want int
	}{
		{3, 2, 5, 0},
		{6, 0, 3, 0},
		{6, 4, 3, 2},
		{6, 5, 3, 3},
		{6, 5, 0, 0},
	}
	for _, tc := range cases {
		if got := firstVisibleColumn(tc.total, tc.focused, tc.visible); got != tc.want {
			t.Fatalf("firstVisibleColumn(%d,%d,%d)=%d, want %d", tc.total, tc.focused, tc.visible, got, tc.want)
		}
	}
}

func TestRenderBoardColumns_ShowsListsCardsAndMarkers(t *testing.T) {
	s := seededStore()
	due := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.Upsert(model.Card{ID: "c1", ListID: "l1", Title: "Write docs", Position: 0, DueDate: &due, Labels: []string{"lb1"}})
	cols := buildBoardColumns(s, "b1")

	opts := columnsRender{
		colWidth:   24,
		now:        due.Add(-time.Hour),
		pending:    func(id string) bool { return id == "c2" },
		labelTitle: func(id string) string { return map[string]string{"lb1": "docs"}[id] },
	}
	out := renderBoardColumns(cols, boardSelection{CardID: "c1"}, opts, 80, 20)
	for _, want := range []string{"Todo (2)", "Done (1)", "Write docs", "#docs", "… Fix login", "✓ Ship it"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in columns output, got=%q", want, out)
		}
	}
	if got := strings.Count(out, "\n") + 1; got != 20 {
		t.Fatalf("expected output to be exactly 20 lines, got %d", got)
	}
}

func TestRenderBoardColumns_ScrollsToFocusedColumn(t *testing.T) {
	s := store.NewEntities()
	for i, title := range []string{"One", "Two", "Three", "Four"} {
		s.Upsert(model.List{ID: title, BoardID: "b", Title: title, Position: i})
	}
	cols := buildBoardColumns(s, "b")
	out := renderBoardColumns(cols, boardSelection{Col: 3}, columnsRender{colWidth: 20}, 44, 4)
	if strings.Contains(out, "One") || !strings.Contains(out, "Four") {
		t.Fatalf("expected the view to scroll right to the focused list, got=%q", out)
	}
}
