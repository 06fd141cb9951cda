package tui

import (
	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/store"
)

type screen int

const (
	screenBoards screen = iota
	screenBoard
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeNewCard
	modeNewList
	modeNewBoard
	modeEditCard
	modeEditList
	modeConfirmDeleteCard
	modeConfirmDeleteList
)

func (md inputMode) prompt() string {
	switch md {
	case modeNewCard:
		return "New card: "
	case modeNewList:
		return "New list: "
	case modeNewBoard:
		return "New board: "
	case modeEditCard:
		return "Card title: "
	case modeEditList:
		return "List title: "
	}
	return ""
}

type boardsLoadedMsg struct {
	boards  []model.Board
	offline bool
	err     error
}

type boardLoadedMsg struct {
	boardID string
	snap    store.BoardSnapshot
	offline bool
	err     error
}

type labelsLoadedMsg struct {
	boardID string
	labels  []model.Label
	err     error
}

type commentsLoadedMsg struct {
	cardID   string
	comments []model.Comment
	err      error
}

type storeEventMsg struct{ ev mutate.Event }

type mutationDoneMsg struct {
	op  string
	id  string
	err error
}

type flashClearMsg struct{ seq int }
