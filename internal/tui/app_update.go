package tui

import (
	"context"
	"strings"

	"kanban-cli/internal/api"
	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.boardsList.SetSize(m.width, max(m.height-3, 1))
		return m, nil

	case flashClearMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
			m.flashErr = false
		}
		return m, nil

	case boardsLoadedMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			if !msg.offline {
				return m, m.showFlash("Boards: "+msg.err.Error(), true)
			}
			for _, b := range msg.boards {
				m.co.Store.Upsert(b)
			}
			m.offline = true
			cmd = m.showFlash("Offline: showing cached boards", true)
		}
		m.refreshBoardsList()
		return m, cmd

	case boardLoadedMsg:
		if msg.boardID != m.boardID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil && !msg.offline {
			m.refresh()
			return m, m.showFlash(msg.err.Error(), true)
		}
		m.offline = msg.offline
		if !msg.offline {
			m.boardID = msg.snap.Board.ID
		}
		m.state.TouchBoard(m.boardID)
		m.refresh()
		m.refreshBoardsList()
		var cmds []tea.Cmd
		if msg.offline {
			cmds = append(cmds, m.showFlash("Offline: showing cached board from "+msg.snap.CachedAt.Local().Format("Jan 2 15:04"), true))
		}
		if m.showDetail {
			if c, ok := m.selectedCard(); ok {
				cmds = append(cmds, m.loadComments(c.ID))
			}
		}
		return m, tea.Batch(cmds...)

	case labelsLoadedMsg:
		if msg.err != nil {
			m.log.Debug("labels not loaded", zap.String("board", msg.boardID), zap.Error(msg.err))
			return m, nil
		}
		if msg.boardID == m.boardID {
			m.labels = make(map[string]string, len(msg.labels))
			for _, l := range msg.labels {
				m.labels[l.ID] = l.Title
			}
		}
		return m, nil

	case commentsLoadedMsg:
		if msg.err != nil {
			m.log.Debug("comments not loaded", zap.String("card", msg.cardID), zap.Error(msg.err))
			return m, nil
		}
		m.comments[msg.cardID] = msg.comments
		return m, nil

	case storeEventMsg:
		ev := msg.ev
		// A confirmed create swaps the temp id for the server id; follow it.
		if ev.Phase == mutate.PhaseConfirmed && ev.TempID != "" && ev.TempID == m.sel.CardID {
			m.sel.CardID = ev.ID
		}
		if ev.Kind == model.KindBoard && ev.Phase == mutate.PhaseConfirmed && ev.TempID != "" && ev.TempID == m.boardID {
			m.boardID = ev.ID
		}
		m.refresh()
		m.refreshBoardsList()
		return m, waitForEvent(m.events)

	case mutationDoneMsg:
		return m.handleMutationDone(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode != modeNormal {
			return m.updateInput(msg)
		}
		if m.screen == screenBoards {
			return m.updateBoards(msg)
		}
		return m.updateBoard(msg)
	}

	if m.screen == screenBoards {
		var cmd tea.Cmd
		m.boardsList, cmd = m.boardsList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m appModel) handleMutationDone(msg mutationDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Debug("mutation failed", zap.String("op", msg.op), zap.String("id", msg.id), zap.Error(msg.err))
		m.refresh()
		m.refreshBoardsList()
		return m, m.showFlash(msg.err.Error(), true)
	}
	switch msg.op {
	case "createCard":
		m.sel.CardID = msg.id
	case "createList":
		m.refresh()
		if ci, ok := m.cols.indexOfList(msg.id); ok {
			m.sel = boardSelection{Col: ci}
		}
	case "createBoard":
		m.refreshBoardsList()
		return m.openBoard(msg.id)
	}
	m.refresh()
	m.refreshBoardsList()
	return m, nil
}

func (m appModel) openBoard(boardID string) (tea.Model, tea.Cmd) {
	if boardID == "" {
		return m, nil
	}
	if boardID != m.boardID {
		m.sel = boardSelection{}
		m.labels = map[string]string{}
		m.showDetail = false
	}
	m.boardID = boardID
	m.screen = screenBoard
	m.tab = tabBoard
	m.tableOffset = 0
	m.loading = true
	m.refresh()
	return m, tea.Batch(m.loadBoard(boardID), m.loadLabels(boardID))
}

func (m appModel) updateBoards(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.boardsList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.boardsList, cmd = m.boardsList.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter":
		if it, ok := m.boardsList.SelectedItem().(boardItem); ok {
			return m.openBoard(it.board.ID)
		}
		return m, nil
	case "n":
		return m.openPrompt(modeNewBoard, "", "")
	case "r":
		return m, m.loadBoards()
	case "esc":
		if m.boardsList.FilterState() == list.FilterApplied {
			m.boardsList.ResetFilter()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.boardsList, cmd = m.boardsList.Update(msg)
	return m, cmd
}

func (m appModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "esc":
		if m.showDetail {
			m.showDetail = false
			return m, nil
		}
		m.screen = screenBoards
		m.refreshBoardsList()
		return m, nil
	case "b":
		m.tab = tabBoard
		return m, nil
	case "s":
		m.tab = tabStats
		return m, nil
	case "c":
		m.tab = tabCalendar
		return m, nil
	case "t":
		m.tab = tabTable
		return m, nil
	case "r":
		m.loading = true
		return m, tea.Batch(m.loadBoard(m.boardID), m.loadLabels(m.boardID))
	}

	switch m.tab {
	case tabCalendar:
		switch key {
		case "h", "left":
			m.calMonth = m.calMonth.AddDate(0, -1, 0)
		case "l", "right":
			m.calMonth = m.calMonth.AddDate(0, 1, 0)
		case "0":
			m.calMonth = monthStart(m.now())
		}
		return m, nil
	case tabTable:
		n := len(m.cols.cards())
		switch key {
		case "j", "down":
			m.tableOffset = clampInt(m.tableOffset+1, 0, max(n-1, 0))
		case "k", "up":
			m.tableOffset = clampInt(m.tableOffset-1, 0, max(n-1, 0))
		case "g", "home":
			m.tableOffset = 0
		}
		return m, nil
	case tabStats:
		return m, nil
	}
	return m.updateColumns(key)
}

func (m appModel) updateColumns(key string) (tea.Model, tea.Cmd) {
	m.sel = m.cols.clamp(m.sel)
	switch key {
	case "h", "left":
		m.sel = m.focusColumn(m.sel.Col - 1)
		return m, m.commentsForDetail()
	case "l", "right":
		m.sel = m.focusColumn(m.sel.Col + 1)
		return m, m.commentsForDetail()
	case "j", "down":
		m.sel = m.focusCard(m.sel.Card + 1)
		return m, m.commentsForDetail()
	case "k", "up":
		m.sel = m.focusCard(m.sel.Card - 1)
		return m, m.commentsForDetail()
	case "g", "home":
		m.sel = m.focusCard(0)
		return m, m.commentsForDetail()
	case "G", "end":
		if m.sel.Col < len(m.cols.cols) {
			m.sel = m.focusCard(len(m.cols.cols[m.sel.Col].cards) - 1)
		}
		return m, m.commentsForDetail()

	case "enter":
		if _, ok := m.selectedCard(); !ok {
			return m, nil
		}
		m.showDetail = !m.showDetail
		return m, m.commentsForDetail()

	case "H", "L":
		c, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		target := m.sel.Col - 1
		if key == "L" {
			target = m.sel.Col + 1
		}
		if target < 0 || target >= len(m.cols.cols) {
			return m, nil
		}
		toList := m.cols.cols[target].list.ID
		return m, m.run("moveCard", c.ID, func(ctx context.Context) (string, error) {
			moved, err := m.co.MoveCard(ctx, c.ID, toList)
			return moved.ID, err
		})

	case "[", "]":
		l, ok := m.selectedList()
		if !ok {
			return m, nil
		}
		to := m.sel.Col - 1
		if key == "]" {
			to = m.sel.Col + 1
		}
		if to < 0 || to >= len(m.cols.cols) {
			return m, nil
		}
		m.sel.Col = to
		return m, m.run("moveList", l.ID, func(ctx context.Context) (string, error) {
			moved, err := m.co.MoveList(ctx, l.ID, to)
			return moved.ID, err
		})

	case " ":
		c, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		done := !c.Completed
		return m, m.run("toggleCard", c.ID, func(ctx context.Context) (string, error) {
			updated, err := m.co.UpdateCard(ctx, c.ID, api.CardPatch{Completed: &done})
			return updated.ID, err
		})

	case "n":
		l, ok := m.selectedList()
		if !ok {
			return m, m.showFlash("Add a list first (N)", true)
		}
		return m.openPrompt(modeNewCard, l.ID, "")
	case "N":
		return m.openPrompt(modeNewList, m.boardID, "")
	case "e":
		c, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		return m.openPrompt(modeEditCard, c.ID, c.Title)
	case "E":
		l, ok := m.selectedList()
		if !ok {
			return m, nil
		}
		return m.openPrompt(modeEditList, l.ID, l.Title)
	case "x":
		c, ok := m.selectedCard()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDeleteCard
		m.editID = c.ID
		return m, nil
	case "X":
		l, ok := m.selectedList()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDeleteList
		m.editID = l.ID
		return m, nil
	}
	return m, nil
}

func (m appModel) focusColumn(col int) boardSelection {
	if len(m.cols.cols) == 0 {
		return boardSelection{Card: -1}
	}
	sel := boardSelection{Col: clampInt(col, 0, len(m.cols.cols)-1), Card: m.sel.Card}
	return m.cols.clamp(sel)
}

func (m appModel) focusCard(card int) boardSelection {
	sel := boardSelection{Col: m.sel.Col, Card: max(card, 0)}
	return m.cols.clamp(sel)
}

func (m appModel) commentsForDetail() tea.Cmd {
	if !m.showDetail {
		return nil
	}
	c, ok := m.selectedCard()
	if !ok {
		return nil
	}
	if _, loaded := m.comments[c.ID]; loaded {
		return nil
	}
	return m.loadComments(c.ID)
}

func (m appModel) openPrompt(mode inputMode, targetID, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.editID = targetID
	m.input.Prompt = mode.prompt()
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m appModel) closePrompt() appModel {
	m.mode = modeNormal
	m.editID = ""
	m.input.Blur()
	m.input.SetValue("")
	return m
}

func (m appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeConfirmDeleteCard, modeConfirmDeleteList:
		mode, id := m.mode, m.editID
		m = m.closePrompt()
		if msg.String() != "y" && msg.String() != "Y" {
			return m, nil
		}
		if mode == modeConfirmDeleteCard {
			return m, m.run("deleteCard", id, func(ctx context.Context) (string, error) {
				return "", m.co.DeleteCard(ctx, id)
			})
		}
		return m, m.run("deleteList", id, func(ctx context.Context) (string, error) {
			return "", m.co.DeleteList(ctx, id)
		})
	}

	switch msg.String() {
	case "esc":
		return m.closePrompt(), nil
	case "enter":
		mode, id := m.mode, m.editID
		title := strings.TrimSpace(m.input.Value())
		m = m.closePrompt()
		return m, m.submitPrompt(mode, id, title)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitPrompt hands the title to the coordinator unchanged; blank titles come back as
// validation errors and are flashed like any other failure.
func (m appModel) submitPrompt(mode inputMode, id, title string) tea.Cmd {
	co := m.co
	switch mode {
	case modeNewCard:
		return m.run("createCard", "", func(ctx context.Context) (string, error) {
			c, err := co.CreateCard(ctx, id, api.CardFields{Title: title})
			return c.ID, err
		})
	case modeNewList:
		return m.run("createList", "", func(ctx context.Context) (string, error) {
			l, err := co.CreateList(ctx, id, title)
			return l.ID, err
		})
	case modeNewBoard:
		return m.run("createBoard", "", func(ctx context.Context) (string, error) {
			b, err := co.CreateBoard(ctx, title)
			return b.ID, err
		})
	case modeEditCard:
		return m.run("renameCard", id, func(ctx context.Context) (string, error) {
			c, err := co.UpdateCard(ctx, id, api.CardPatch{Title: &title})
			return c.ID, err
		})
	case modeEditList:
		return m.run("renameList", id, func(ctx context.Context) (string, error) {
			l, err := co.UpdateList(ctx, id, api.ListPatch{Title: &title})
			return l.ID, err
		})
	}
	return nil
}
