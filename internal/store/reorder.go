package store

import (
	"errors"
	"sort"
	"strings"

	"kanban-cli/internal/model"
)

// SortListsByPosition sorts lists in place: position ascending, then id.
func SortListsByPosition(lists []model.List) {
	sort.SliceStable(lists, func(i, j int) bool {
		return comparePositionID(lists[i].Position, lists[i].ID, lists[j].Position, lists[j].ID) < 0
	})
}

// SortCardsByPosition sorts cards in place: position ascending, then id. Equal positions only
// show up transiently (two rapid moves racing); the id keeps the render order total.
func SortCardsByPosition(cards []model.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return comparePositionID(cards[i].Position, cards[i].ID, cards[j].Position, cards[j].ID) < 0
	})
}

func comparePositionID(pa int, ida string, pb int, idb string) int {
	if pa < pb {
		return -1
	}
	if pa > pb {
		return 1
	}
	return strings.Compare(ida, idb)
}

// AppendPosition is the position of an entity appended to a sibling set of the given size.
func AppendPosition(siblingCount int) int {
	if siblingCount < 0 {
		return 0
	}
	return siblingCount
}

// RenumberCards assigns contiguous positions 0..n-1 following the current order of cards
// (which must already be sorted). It returns the cards whose position changed.
func RenumberCards(cards []model.Card) []model.Card {
	changed := []model.Card{}
	for i := range cards {
		if cards[i].Position != i {
			cards[i].Position = i
			changed = append(changed, cards[i])
		}
	}
	return changed
}

// RenumberLists is RenumberCards for lists.
func RenumberLists(lists []model.List) []model.List {
	changed := []model.List{}
	for i := range lists {
		if lists[i].Position != i {
			lists[i].Position = i
			changed = append(changed, lists[i])
		}
	}
	return changed
}

// CardMovePlan describes the local writes for moving one card to the end of another list.
type CardMovePlan struct {
	Card           model.Card   // the moved card with its new ListID/Position
	TargetPosition int          // count of cards in the target list before the move
	Renumbered     []model.Card // source siblings whose position closes the vacated slot
}

// PlanCardMove plans an append-to-end move of cardID from source into target.
// source and target are the sorted card sets of the two lists; target must not contain the card.
func PlanCardMove(source, target []model.Card, cardID, targetListID string) (CardMovePlan, error) {
	cardID = strings.TrimSpace(cardID)
	targetListID = strings.TrimSpace(targetListID)
	if cardID == "" || targetListID == "" {
		return CardMovePlan{}, errors.New("missing card or target list")
	}

	idx := -1
	for i := range source {
		if source[i].ID == cardID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return CardMovePlan{}, errors.New("card not found in source list")
	}
	for i := range target {
		if target[i].ID == cardID {
			return CardMovePlan{}, errors.New("card already in target list")
		}
	}

	moved := source[idx]
	rest := make([]model.Card, 0, len(source)-1)
	rest = append(rest, source[:idx]...)
	rest = append(rest, source[idx+1:]...)

	pos := AppendPosition(len(target))
	moved.ListID = targetListID
	moved.Position = pos

	return CardMovePlan{
		Card:           moved,
		TargetPosition: pos,
		Renumbered:     RenumberCards(rest),
	}, nil
}

// PlanListInsert plans moving listID to index within its board (index is interpreted in the
// sibling order after removing the moved list). All lists whose position changes are returned,
// in final order. An unchanged index yields no updates.
func PlanListInsert(lists []model.List, listID string, index int) ([]model.List, error) {
	listID = strings.TrimSpace(listID)
	if listID == "" {
		return nil, errors.New("missing list id")
	}

	cur := append([]model.List{}, lists...)
	SortListsByPosition(cur)

	movedIdx := -1
	for i := range cur {
		if cur[i].ID == listID {
			movedIdx = i
			break
		}
	}
	if movedIdx < 0 {
		return nil, errors.New("list not found in board")
	}
	moved := cur[movedIdx]

	rest := make([]model.List, 0, len(cur)-1)
	rest = append(rest, cur[:movedIdx]...)
	rest = append(rest, cur[movedIdx+1:]...)

	if index < 0 {
		index = 0
	}
	if index > len(rest) {
		index = len(rest)
	}

	final := make([]model.List, 0, len(cur))
	final = append(final, rest[:index]...)
	final = append(final, moved)
	final = append(final, rest[index:]...)
	return RenumberLists(final), nil
}
