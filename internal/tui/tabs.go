package tui

import (
	"fmt"
	"strings"
	"time"

	"kanban-cli/internal/model"
	"kanban-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
)

type boardTab int

const (
	tabBoard boardTab = iota
	tabStats
	tabCalendar
	tabTable
)

var tabNames = []string{"Board", "Stats", "Calendar", "Table"}

func renderTabBar(active boardTab, width int) string {
	on := lipgloss.NewStyle().Bold(true).Foreground(colors.AccentFg).Background(colors.Accent).Padding(0, 1)
	off := lipgloss.NewStyle().Foreground(colors.ChromeMuted).Padding(0, 1)
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		key := strings.ToLower(name[:1])
		label := fmt.Sprintf("%s %s", key, name)
		if boardTab(i) == active {
			parts = append(parts, on.Render(label))
		} else {
			parts = append(parts, off.Render(label))
		}
	}
	return normalizePane(strings.Join(parts, " "), width, 1)
}

func renderStats(st views.BoardStats, width, height int) string {
	h := lipgloss.NewStyle().Bold(true)
	lines := []string{
		h.Render("Cards"),
		fmt.Sprintf("  total      %d", st.Total),
		fmt.Sprintf("  completed  %d", st.Completed),
		dueStyle("overdue").Render(fmt.Sprintf("  overdue    %d", st.Overdue)),
		dueStyle("soon").Render(fmt.Sprintf("  due soon   %d", st.DueSoon)),
		"",
		h.Render("By list"),
	}
	most := 1
	for _, lc := range st.ByList {
		most = max(most, lc.Count)
	}
	barW := max(width-30, 4)
	bar := lipgloss.NewStyle().Foreground(colors.Accent)
	for _, lc := range st.ByList {
		n := lc.Count * barW / most
		lines = append(lines, fmt.Sprintf("  %-18s %3d %s", truncateText(lc.Title, 18), lc.Count, bar.Render(strings.Repeat("█", n))))
	}
	return normalizePane(strings.Join(lines, "\n"), width, height)
}

func renderCalendar(cal views.CalendarMonth, now time.Time, width, height int) string {
	cellW := max((width-6)/7, 6)
	head := lipgloss.NewStyle().Bold(true).Render(cal.Month.Format("January 2006")) +
		styleMuted().Render("   h/l: previous/next month")
	lines := []string{head, ""}

	dow := make([]string, 0, 7)
	for _, d := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		dow = append(dow, normalizePane(metaStyle().Render(d), cellW, 1))
	}
	lines = append(lines, strings.Join(dow, " "))

	// Rows per week: the day number plus as many card titles as fit.
	perWeek := max((height-3)/max(len(cal.Weeks), 1), 2)
	today := now.Format("2006-01-02")
	for _, week := range cal.Weeks {
		cells := make([]string, 0, 7)
		for _, day := range week {
			num := fmt.Sprintf("%2d", day.Date.Day())
			st := lipgloss.NewStyle()
			switch {
			case day.Date.Format("2006-01-02") == today:
				st = st.Bold(true).Foreground(colors.AccentFg).Background(colors.Accent)
			case !day.InMonth:
				st = styleMuted()
			}
			cell := []string{st.Render(num)}
			for i, c := range day.Cards {
				if len(cell) >= perWeek {
					cell[len(cell)-1] = styleMuted().Render(fmt.Sprintf("+%d", len(day.Cards)-i+1))
					break
				}
				cell = append(cell, dueStyle(views.DueState(c, now)).Render(truncateText(c.Title, cellW)))
			}
			cells = append(cells, normalizePane(strings.Join(cell, "\n"), cellW, perWeek))
		}
		row := cells[0]
		for _, c := range cells[1:] {
			row = lipgloss.JoinHorizontal(lipgloss.Top, row, " ", c)
		}
		lines = append(lines, row)
	}
	return normalizePane(strings.Join(lines, "\n"), width, height)
}

func renderTable(rows []views.TableRow, offset int, labelTitle func(string) string, now time.Time, width, height int) string {
	titleW := max(width-40, 12)
	h := lipgloss.NewStyle().Bold(true)
	lines := []string{h.Render(fmt.Sprintf("%-*s  %-16s  %-12s  %s", titleW, "Title", "List", "Due", "Labels"))}
	if len(rows) == 0 {
		lines = append(lines, styleMuted().Render("No cards."))
		return normalizePane(strings.Join(lines, "\n"), width, height)
	}
	offset = clampInt(offset, 0, len(rows)-1)
	for _, r := range rows[offset:] {
		if len(lines) >= height {
			break
		}
		title := truncateText(r.Title, titleW)
		if r.Completed {
			title = styleMuted().Strikethrough(true).Render(title)
		}
		due := views.FormatDue(r.DueDate, time.Local)
		state := views.DueState(model.Card{DueDate: r.DueDate, Completed: r.Completed}, now)
		labels := make([]string, 0, len(r.Labels))
		for _, id := range r.Labels {
			if labelTitle != nil {
				id = labelTitle(id)
			}
			labels = append(labels, "#"+id)
		}
		lines = append(lines, normalizePane(title, titleW, 1)+"  "+
			normalizePane(truncateText(r.ListTitle, 16), 16, 1)+"  "+
			normalizePane(dueStyle(state).Render(due), 12, 1)+"  "+
			strings.Join(labels, " "))
	}
	return normalizePane(strings.Join(lines, "\n"), width, height)
}
