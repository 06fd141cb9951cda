package perm

import (
	"strings"

	"kanban-cli/internal/model"
)

// CanEditBoard reports whether actorID may rename the board or change its lists and cards.
//
// Rules:
// - The owner and every member can edit board content.
// - Nobody else can.
func CanEditBoard(b model.Board, actorID string) bool {
	actorID = strings.TrimSpace(actorID)
	return actorID != "" && b.HasMember(actorID)
}

// CanDeleteBoard reports whether actorID may delete the board. Only the owner can.
func CanDeleteBoard(b model.Board, actorID string) bool {
	actorID = strings.TrimSpace(actorID)
	return actorID != "" && b.Owner == actorID
}

// CanInvite reports whether actorID may invite people to the board. Only the owner can.
func CanInvite(b model.Board, actorID string) bool {
	return CanDeleteBoard(b, actorID)
}

// CanRemoveMember enforces the membership rules for removing memberID from the board.
//
// Rules:
// - The owner can never be removed (the owner deletes the board instead).
// - The owner can remove any other member.
// - A member can remove themself (leave); members cannot remove each other.
func CanRemoveMember(b model.Board, actorID, memberID string) bool {
	actorID = strings.TrimSpace(actorID)
	memberID = strings.TrimSpace(memberID)
	if actorID == "" || memberID == "" {
		return false
	}
	if memberID == b.Owner {
		return false
	}
	if !b.HasMember(memberID) {
		return false
	}
	if actorID == b.Owner {
		return true
	}
	return actorID == memberID
}

// CanLeave reports whether actorID may leave the board.
func CanLeave(b model.Board, actorID string) bool {
	return CanRemoveMember(b, actorID, actorID)
}

// WithoutMember returns the board's member list minus memberID, keeping order.
func WithoutMember(b model.Board, memberID string) []string {
	out := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		if m != memberID {
			out = append(out, m)
		}
	}
	return out
}
