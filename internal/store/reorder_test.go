package store

import (
	"testing"

	"kanban-cli/internal/model"
)

func TestPlanCardMove_AppendsAndClosesGap(t *testing.T) {
	source := []model.Card{
		{ID: "a1", ListID: "A", Position: 0},
		{ID: "a2", ListID: "A", Position: 1},
		{ID: "a3", ListID: "A", Position: 2},
	}
	target := []model.Card{{ID: "b1", ListID: "B", Position: 0}}

	plan, err := PlanCardMove(source, target, "a1", "B")
	if err != nil {
		t.Fatalf("PlanCardMove: %v", err)
	}
	if plan.Card.ListID != "B" || plan.Card.Position != 1 || plan.TargetPosition != 1 {
		t.Fatalf("moved card = %#v target=%d", plan.Card, plan.TargetPosition)
	}
	if len(plan.Renumbered) != 2 {
		t.Fatalf("renumbered = %#v", plan.Renumbered)
	}
	for i, c := range plan.Renumbered {
		if c.Position != i {
			t.Fatalf("renumbered[%d] = %s@%d", i, c.ID, c.Position)
		}
	}
}

func TestPlanCardMove_LastCardNeedsNoRenumber(t *testing.T) {
	source := []model.Card{{ID: "a1", Position: 0}, {ID: "a2", Position: 1}}
	plan, err := PlanCardMove(source, nil, "a2", "B")
	if err != nil {
		t.Fatalf("PlanCardMove: %v", err)
	}
	if len(plan.Renumbered) != 0 {
		t.Fatalf("expected no renumbering, got %#v", plan.Renumbered)
	}
	if plan.TargetPosition != 0 {
		t.Fatalf("TargetPosition = %d", plan.TargetPosition)
	}
}

func TestPlanCardMove_Errors(t *testing.T) {
	source := []model.Card{{ID: "a1", Position: 0}}
	if _, err := PlanCardMove(source, nil, "zz", "B"); err == nil {
		t.Fatalf("expected error for unknown card")
	}
	if _, err := PlanCardMove(source, source, "a1", "B"); err == nil {
		t.Fatalf("expected error when target already holds the card")
	}
	if _, err := PlanCardMove(source, nil, "a1", " "); err == nil {
		t.Fatalf("expected error for blank target")
	}
}

func TestRenumberCards_ReturnsOnlyChanged(t *testing.T) {
	cards := []model.Card{{ID: "a", Position: 0}, {ID: "b", Position: 2}, {ID: "c", Position: 5}}
	changed := RenumberCards(cards)
	if len(changed) != 2 || changed[0].ID != "b" || changed[1].ID != "c" {
		t.Fatalf("changed = %#v", changed)
	}
	for i, c := range cards {
		if c.Position != i {
			t.Fatalf("cards[%d].Position = %d", i, c.Position)
		}
	}
}

func TestPlanListInsert(t *testing.T) {
	lists := []model.List{
		{ID: "l1", Position: 0},
		{ID: "l2", Position: 1},
		{ID: "l3", Position: 2},
	}

	changed, err := PlanListInsert(lists, "l3", 0)
	if err != nil {
		t.Fatalf("PlanListInsert: %v", err)
	}
	want := map[string]int{"l3": 0, "l1": 1, "l2": 2}
	if len(changed) != 3 {
		t.Fatalf("changed = %#v", changed)
	}
	for _, l := range changed {
		if want[l.ID] != l.Position {
			t.Fatalf("%s at %d, want %d", l.ID, l.Position, want[l.ID])
		}
	}

	changed, err = PlanListInsert(lists, "l1", 99)
	if err != nil {
		t.Fatalf("PlanListInsert clamp: %v", err)
	}
	for _, l := range changed {
		if l.ID == "l1" && l.Position != 2 {
			t.Fatalf("clamped index put l1 at %d", l.Position)
		}
	}

	changed, err = PlanListInsert(lists, "l2", 1)
	if err != nil {
		t.Fatalf("PlanListInsert same index: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("same index should change nothing, got %#v", changed)
	}

	if _, err := PlanListInsert(lists, "nope", 0); err == nil {
		t.Fatalf("expected error for unknown list")
	}
}

func TestAppendPosition(t *testing.T) {
	if AppendPosition(-1) != 0 || AppendPosition(0) != 0 || AppendPosition(3) != 3 {
		t.Fatalf("AppendPosition mismatch")
	}
}
