package perm

import (
	"testing"

	"kanban-cli/internal/model"
)

func board() model.Board {
	return model.Board{ID: "b1", Owner: "owner", Members: []string{"owner", "m1", "m2"}}
}

func TestCanRemoveMember_OwnerRemovesOthers(t *testing.T) {
	if !CanRemoveMember(board(), "owner", "m1") {
		t.Fatalf("expected owner to remove m1")
	}
}

func TestCanRemoveMember_OwnerCannotBeRemoved(t *testing.T) {
	if CanRemoveMember(board(), "owner", "owner") {
		t.Fatalf("expected owner removal to be denied")
	}
	if CanLeave(board(), "owner") {
		t.Fatalf("expected owner leave to be denied")
	}
}

func TestCanRemoveMember_MemberOnlyRemovesSelf(t *testing.T) {
	if CanRemoveMember(board(), "m1", "m2") {
		t.Fatalf("expected m1 removing m2 to be denied")
	}
	if !CanRemoveMember(board(), "m1", "m1") {
		t.Fatalf("expected m1 to remove themself")
	}
	if !CanLeave(board(), "m2") {
		t.Fatalf("expected m2 to leave")
	}
}

func TestCanRemoveMember_NonMemberTarget(t *testing.T) {
	if CanRemoveMember(board(), "owner", "stranger") {
		t.Fatalf("expected removing a non-member to be denied")
	}
}

func TestCanEditAndDeleteBoard(t *testing.T) {
	b := board()
	if !CanEditBoard(b, "m1") || CanEditBoard(b, "stranger") || CanEditBoard(b, "") {
		t.Fatalf("unexpected edit permissions")
	}
	if !CanDeleteBoard(b, "owner") || CanDeleteBoard(b, "m1") {
		t.Fatalf("unexpected delete permissions")
	}
	if !CanInvite(b, "owner") || CanInvite(b, "m2") {
		t.Fatalf("unexpected invite permissions")
	}
}

func TestWithoutMember_KeepsOrder(t *testing.T) {
	got := WithoutMember(board(), "m1")
	if len(got) != 2 || got[0] != "owner" || got[1] != "m2" {
		t.Fatalf("got %v", got)
	}
}
