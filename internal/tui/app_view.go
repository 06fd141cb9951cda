package tui

import (
	"strings"

	"kanban-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
)

const (
	boardsHelp   = "enter: open  n: new board  /: filter  r: reload  q: quit"
	columnsHelp  = "h/l j/k: move  H/L: move card  [/]: move list  n/N: new card/list  e/E: rename  x/X: delete  space: done  enter: details  esc: boards"
	tabsHelp     = "b/s/c/t: tabs  r: reload  esc: boards  q: quit"
	detailWidth  = 44
	minBodyWidth = 20
)

func (m appModel) View() string {
	header := m.viewHeader()
	footer := m.viewFooter()
	bodyH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var body string
	switch m.screen {
	case screenBoards:
		body = normalizePane(m.viewBoards(bodyH), m.width, bodyH)
	default:
		body = m.viewBoard(bodyH)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m appModel) viewHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colors.AccentFg).Background(colors.Accent).Padding(0, 1)
	parts := []string{title.Render("kanban")}
	if m.screen == screenBoard {
		if b, ok := m.co.Store.Board(m.boardID); ok {
			parts = append(parts, lipgloss.NewStyle().Bold(true).Render(b.Title))
		}
	} else {
		parts = append(parts, lipgloss.NewStyle().Bold(true).Render("Boards"))
	}
	if m.loading {
		parts = append(parts, styleMuted().Render("loading…"))
	}
	if m.offline {
		parts = append(parts, lipgloss.NewStyle().Foreground(colors.Overdue).Render("offline"))
	}
	lines := []string{normalizePane(strings.Join(parts, " "), m.width, 1)}
	if m.screen == screenBoard {
		lines = append(lines, renderTabBar(m.tab, m.width))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) viewFooter() string {
	var line string
	switch {
	case m.mode == modeConfirmDeleteCard:
		line = lipgloss.NewStyle().Bold(true).Render("Delete card? (y/n)")
	case m.mode == modeConfirmDeleteList:
		line = lipgloss.NewStyle().Bold(true).Render("Delete list and all its cards? (y/n)")
	case m.mode != modeNormal:
		line = m.input.View()
	case m.flash != "":
		st := lipgloss.NewStyle().Foreground(colors.SurfaceFg)
		if m.flashErr {
			st = lipgloss.NewStyle().Foreground(colors.AccentFg).Background(colors.FlashErrorBg)
		}
		line = st.Render(m.flash)
	case m.screen == screenBoards:
		line = styleMuted().Render(boardsHelp)
	case m.tab == tabBoard:
		line = styleMuted().Render(columnsHelp)
	default:
		line = styleMuted().Render(tabsHelp)
	}
	return normalizePane(line, m.width, 1)
}

func (m appModel) viewBoards(height int) string {
	if len(m.boardsList.Items()) == 0 {
		return styleMuted().Render("No boards yet. Press n to create one.")
	}
	l := m.boardsList
	l.SetSize(m.width, height)
	return l.View()
}

func (m appModel) viewBoard(height int) string {
	now := m.now()
	switch m.tab {
	case tabStats:
		st := views.Stats(m.cols.lists(), m.cols.cards(), now)
		return renderStats(st, m.width, height)
	case tabCalendar:
		return renderCalendar(views.Calendar(m.cols.cards(), m.calMonth), now, m.width, height)
	case tabTable:
		rows := views.Table(m.cols.cards(), m.cols.lists())
		return renderTable(rows, m.tableOffset, m.labelTitle, now, m.width, height)
	}

	opts := columnsRender{
		colWidth:   m.colWidth,
		now:        now,
		pending:    m.cardPending,
		labelTitle: m.labelTitle,
	}
	card, hasCard := m.selectedCard()
	if !m.showDetail || !hasCard || m.width-detailWidth < minBodyWidth {
		return renderBoardColumns(m.cols, m.sel, opts, m.width, height)
	}

	colsW := m.width - detailWidth - 1
	d := cardDetail{
		card:       card,
		labelTitle: m.labelTitle,
		pending:    m.cardPending(card.ID),
		now:        now,
	}
	if l, ok := m.selectedList(); ok {
		d.listTitle = l.Title
	}
	d.comments, d.commentsLoaded = m.comments[card.ID]
	if m.client == nil {
		d.commentsLoaded = true
	}
	sep := normalizePane(styleMuted().Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n")), 1, height)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		renderBoardColumns(m.cols, m.sel, opts, colsW, height),
		sep,
		renderCardDetail(d, detailWidth, height),
	)
}
