package tui

import (
	"fmt"
	"strings"
	"time"

	"kanban-cli/internal/model"
	"kanban-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
)

// boardSource is the read side of the entity store the board view renders from.
type boardSource interface {
	ListsForBoard(boardID string) []model.List
	CardsForList(listID string) []model.Card
}

type boardSelection struct {
	Col  int
	Card int
	// CardID tracks the focused card across reorders and moves; preferred over Card.
	CardID string
}

type boardColumn struct {
	list  model.List
	cards []model.Card
}

type boardColumns struct {
	cols []boardColumn
}

func buildBoardColumns(src boardSource, boardID string) boardColumns {
	lists := src.ListsForBoard(boardID)
	out := boardColumns{cols: make([]boardColumn, 0, len(lists))}
	for _, l := range lists {
		out.cols = append(out.cols, boardColumn{list: l, cards: src.CardsForList(l.ID)})
	}
	return out
}

func (b boardColumns) indexOfCard(cardID string) (int, int, bool) {
	if cardID == "" {
		return 0, 0, false
	}
	for ci := range b.cols {
		for ii := range b.cols[ci].cards {
			if b.cols[ci].cards[ii].ID == cardID {
				return ci, ii, true
			}
		}
	}
	return 0, 0, false
}

func (b boardColumns) indexOfList(listID string) (int, bool) {
	for ci := range b.cols {
		if b.cols[ci].list.ID == listID {
			return ci, true
		}
	}
	return 0, false
}

// clamp brings sel back inside the board, following CardID when the card still exists.
func (b boardColumns) clamp(sel boardSelection) boardSelection {
	if len(b.cols) == 0 {
		return boardSelection{Card: -1}
	}
	if ci, ii, ok := b.indexOfCard(sel.CardID); ok {
		sel.Col, sel.Card = ci, ii
	} else {
		sel.CardID = ""
	}
	sel.Col = clampInt(sel.Col, 0, len(b.cols)-1)

	n := len(b.cols[sel.Col].cards)
	if n == 0 {
		sel.Card = -1
		return sel
	}
	sel.Card = clampInt(sel.Card, 0, n-1)
	sel.CardID = b.cols[sel.Col].cards[sel.Card].ID
	return sel
}

func (b boardColumns) selectedList(sel boardSelection) (model.List, bool) {
	if sel.Col < 0 || sel.Col >= len(b.cols) {
		return model.List{}, false
	}
	return b.cols[sel.Col].list, true
}

func (b boardColumns) selectedCard(sel boardSelection) (model.Card, bool) {
	sel = b.clamp(sel)
	if len(b.cols) == 0 || sel.Card < 0 {
		return model.Card{}, false
	}
	return b.cols[sel.Col].cards[sel.Card], true
}

func (b boardColumns) lists() []model.List {
	out := make([]model.List, 0, len(b.cols))
	for _, c := range b.cols {
		out = append(out, c.list)
	}
	return out
}

func (b boardColumns) cards() []model.Card {
	var out []model.Card
	for _, c := range b.cols {
		out = append(out, c.cards...)
	}
	return out
}

type columnsRender struct {
	colWidth int
	now      time.Time
	// pending reports cards whose mutation has not been confirmed yet.
	pending func(cardID string) bool
	// labelTitle resolves a label id to its display name.
	labelTitle func(labelID string) string
}

// firstVisibleColumn scrolls horizontally so the focused column stays on screen.
func firstVisibleColumn(total, focused, visible int) int {
	if visible <= 0 || total <= visible {
		return 0
	}
	first := focused - visible + 1
	if first < 0 {
		first = 0
	}
	if first > total-visible {
		first = total - visible
	}
	return first
}

func renderBoardColumns(board boardColumns, sel boardSelection, opts columnsRender, width, height int) string {
	if len(board.cols) == 0 {
		return normalizePane(styleMuted().Render("No lists yet. Press N to add one."), width, height)
	}
	sel = board.clamp(sel)

	const gap = 2
	colW := opts.colWidth
	if colW < 12 {
		colW = 12
	}
	visible := (width + gap) / (colW + gap)
	if visible < 1 {
		visible = 1
	}
	first := firstVisibleColumn(len(board.cols), sel.Col, visible)
	last := first + visible
	if last > len(board.cols) {
		last = len(board.cols)
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(colors.SurfaceFg).Background(colors.ControlBg).Width(colW)
	headerSelected := lipgloss.NewStyle().Bold(true).Foreground(colors.AccentFg).Background(colors.Accent).Width(colW)
	itemStyle := lipgloss.NewStyle().Width(colW).Padding(0, 1)
	itemSelected := itemStyle.Foreground(colors.SelectedFg).Background(colors.SelectedBg).Bold(true)
	innerW := colW - 2

	renderCard := func(c model.Card, selected bool) []string {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = "(untitled)"
		}
		prefix := "  "
		switch {
		case opts.pending != nil && opts.pending(c.ID):
			prefix = "… "
		case c.Completed:
			prefix = "✓ "
		}
		lines := wrapWords(title, innerW-2)
		for i := range lines {
			if i == 0 {
				lines[i] = prefix + lines[i]
			} else {
				lines[i] = "  " + lines[i]
			}
		}
		titleStyle := lipgloss.NewStyle()
		if c.Completed && !selected {
			titleStyle = faintIfDark(titleStyle).Foreground(colors.Muted).Strikethrough(true)
		}
		for i := range lines {
			lines[i] = titleStyle.Render(lines[i])
		}

		var meta []string
		if c.DueDate != nil {
			meta = append(meta, dueStyle(views.DueState(c, opts.now)).Render(views.FormatDue(c.DueDate, time.Local)))
		}
		for _, id := range c.Labels {
			name := id
			if opts.labelTitle != nil {
				name = opts.labelTitle(id)
			}
			meta = append(meta, metaStyle().Render("#"+name))
		}
		if len(c.Assignees) > 0 {
			meta = append(meta, metaStyle().Render(fmt.Sprintf("@%d", len(c.Assignees))))
		}
		if len(meta) > 0 {
			lines = append(lines, "  "+truncateText(strings.Join(meta, " "), innerW-2))
		}

		st := itemStyle
		if selected {
			st = itemSelected
		}
		return strings.Split(st.Render(normalizePane(strings.Join(lines, "\n"), innerW, 0)), "\n")
	}

	renderCol := func(ci int) string {
		col := board.cols[ci]
		head := truncateText(fmt.Sprintf("%s (%d)", col.list.Title, len(col.cards)), colW)
		hs := headerStyle
		if ci == sel.Col {
			hs = headerSelected
		}
		lines := []string{hs.Render(head), ""}
		if len(col.cards) == 0 {
			lines = append(lines, styleMuted().Render("  (empty)"))
			return normalizePane(strings.Join(lines, "\n"), colW, height)
		}

		// Keep the focused card in view when the column is taller than the pane.
		cardLines := make([][]string, len(col.cards))
		for i, c := range col.cards {
			cardLines[i] = renderCard(c, ci == sel.Col && i == sel.Card)
		}
		start := 0
		if ci == sel.Col && sel.Card > 0 {
			used := 0
			for i := sel.Card; i >= 0; i-- {
				used += len(cardLines[i]) + 1
				if used > height-2 {
					start = min(i+1, sel.Card)
					break
				}
			}
		}
		if start > 0 {
			lines = append(lines, styleMuted().Render(fmt.Sprintf("  ↑ %d more", start)))
		}
		sep := styleMuted().Render(" " + strings.Repeat("─", max(colW-2, 0)) + " ")
		for i := start; i < len(cardLines); i++ {
			lines = append(lines, cardLines[i]...)
			if i < len(cardLines)-1 {
				lines = append(lines, sep)
			}
		}
		return normalizePane(strings.Join(lines, "\n"), colW, height)
	}

	out := renderCol(first)
	spacer := normalizePane("", gap, height)
	for ci := first + 1; ci < last; ci++ {
		out = lipgloss.JoinHorizontal(lipgloss.Top, out, spacer, renderCol(ci))
	}
	return normalizePane(out, width, height)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
