// Package views derives the read-only board summaries (stats, calendar, table) from the
// cards and lists held in the entity store.
package views

import (
	"sort"
	"strings"
	"time"

	"kanban-cli/internal/model"
)

// DueSoonWindow is how far ahead an open card's due date counts as due soon.
const DueSoonWindow = 72 * time.Hour

type ListCount struct {
	ListID string `json:"listId"`
	Title  string `json:"title"`
	Count  int    `json:"count"`
}

type BoardStats struct {
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Overdue   int         `json:"overdue"`
	DueSoon   int         `json:"dueSoon"`
	ByList    []ListCount `json:"byList"`
}

// Stats counts cards. Overdue and due-soon only consider open cards; per-list counts follow
// the order of lists.
func Stats(lists []model.List, cards []model.Card, now time.Time) BoardStats {
	out := BoardStats{Total: len(cards), ByList: make([]ListCount, 0, len(lists))}
	perList := map[string]int{}
	for _, c := range cards {
		perList[c.ListID]++
		if c.Completed {
			out.Completed++
			continue
		}
		if c.DueDate == nil {
			continue
		}
		switch d := c.DueDate.Sub(now); {
		case d < 0:
			out.Overdue++
		case d < DueSoonWindow:
			out.DueSoon++
		}
	}
	for _, l := range lists {
		out.ByList = append(out.ByList, ListCount{ListID: l.ID, Title: l.Title, Count: perList[l.ID]})
	}
	return out
}

type CalendarDay struct {
	Date    time.Time    `json:"date"`
	InMonth bool         `json:"inMonth"`
	Cards   []model.Card `json:"cards"`
}

type CalendarMonth struct {
	Month time.Time       `json:"month"`
	Weeks [][]CalendarDay `json:"weeks"`
}

// Calendar lays out the month containing month as whole Monday-first weeks. Days outside the
// month pad the first and last week. Cards land on their due day in month's location;
// undated cards are skipped.
func Calendar(cards []model.Card, month time.Time) CalendarMonth {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	byDay := map[string][]model.Card{}
	for _, c := range cards {
		if c.DueDate == nil {
			continue
		}
		k := dayKey(c.DueDate.In(loc))
		byDay[k] = append(byDay[k], c)
	}
	for k := range byDay {
		sort.SliceStable(byDay[k], func(i, j int) bool { return byDay[k][i].DueDate.Before(*byDay[k][j].DueDate) })
	}

	// Monday = 0 ... Sunday = 6.
	offset := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -offset)
	trailing := 6 - (int(last.Weekday())+6)%7
	end := last.AddDate(0, 0, trailing)

	out := CalendarMonth{Month: first}
	var week []CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := CalendarDay{Date: d, InMonth: d.Month() == first.Month(), Cards: byDay[dayKey(d)]}
		if day.Cards == nil {
			day.Cards = []model.Card{}
		}
		week = append(week, day)
		if len(week) == 7 {
			out.Weeks = append(out.Weeks, week)
			week = nil
		}
	}
	return out
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

type TableRow struct {
	CardID    string     `json:"cardId"`
	Title     string     `json:"title"`
	ListID    string     `json:"listId"`
	ListTitle string     `json:"listTitle"`
	Labels    []string   `json:"labels"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Completed bool       `json:"isCompleted"`
}

// Table returns one row per card sorted by due date ascending; undated cards come last in
// their board order. Cards whose list is unknown get an empty list title.
func Table(cards []model.Card, lists []model.List) []TableRow {
	titles := make(map[string]string, len(lists))
	for _, l := range lists {
		titles[l.ID] = l.Title
	}
	rows := make([]TableRow, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, TableRow{
			CardID:    c.ID,
			Title:     c.Title,
			ListID:    c.ListID,
			ListTitle: titles[c.ListID],
			Labels:    append([]string{}, c.Labels...),
			DueDate:   c.DueDate,
			Completed: c.Completed,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].DueDate, rows[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return rows
}

// FormatDue renders a due date like "Jan 5" or "Jan 5 14:30" when a time of day is set.
func FormatDue(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	v := t.In(loc)
	if v.Hour() == 0 && v.Minute() == 0 {
		return v.Format("Jan 2")
	}
	return v.Format("Jan 2 15:04")
}

// DueState classifies an open card's due date relative to now: "overdue", "soon" or "".
func DueState(c model.Card, now time.Time) string {
	if c.Completed || c.DueDate == nil {
		return ""
	}
	d := c.DueDate.Sub(now)
	switch {
	case d < 0:
		return "overdue"
	case d < DueSoonWindow:
		return "soon"
	default:
		return ""
	}
}

// ParseMonth parses "2006-01" (or "" for the month containing now) in loc.
func ParseMonth(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation("2006-01", s, loc)
}
