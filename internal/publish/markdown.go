package publish

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

type RenderOptions struct {
	// Labels maps label ids to titles; unknown ids are printed as-is.
	Labels map[string]string
	// Comments holds the threads to include, keyed by card id.
	Comments         map[string][]model.Comment
	IncludeCompleted bool
	Location         *time.Location
}

func (o RenderOptions) loc() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o RenderOptions) labelNames(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		name := id
		if t, ok := o.Labels[id]; ok && strings.TrimSpace(t) != "" {
			name = t
		}
		out = append(out, "#"+name)
	}
	return out
}

// RenderBoardMarkdown renders the board as one section per list with a task line per card.
// Lists and cards keep their board order.
func RenderBoardMarkdown(snap store.BoardSnapshot, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(snap.Board.Title))
	writeLn("")
	writeLn("- ID: " + snap.Board.ID)
	if len(snap.Board.Members) > 0 {
		writeLn("- Members: " + strings.Join(snap.Board.Members, ", "))
	}
	if !snap.CachedAt.IsZero() {
		writeLn("- Snapshot: " + snap.CachedAt.In(opt.loc()).Format(time.RFC3339))
	}

	lists := append([]model.List(nil), snap.Lists...)
	store.SortListsByPosition(lists)
	byList := map[string][]model.Card{}
	for _, c := range snap.Cards {
		byList[c.ListID] = append(byList[c.ListID], c)
	}

	for _, l := range lists {
		cards := byList[l.ID]
		store.SortCardsByPosition(cards)
		writeLn("")
		writeLn("## " + strings.TrimSpace(l.Title))
		writeLn("")
		n := 0
		for _, c := range cards {
			if c.Completed && !opt.IncludeCompleted {
				continue
			}
			writeLn(cardLine(c, opt))
			n++
		}
		if n == 0 {
			writeLn("_No cards._")
		}
	}
	return buf.String()
}

func cardLine(c model.Card, opt RenderOptions) string {
	box := "[ ]"
	if c.Completed {
		box = "[x]"
	}
	parts := []string{"- " + box + " " + strings.TrimSpace(c.Title)}
	if c.DueDate != nil {
		parts = append(parts, "(due "+formatDue(*c.DueDate, opt.loc())+")")
	}
	parts = append(parts, opt.labelNames(c.Labels)...)
	parts = append(parts, "`"+c.ID+"`")
	return strings.Join(parts, " ")
}

// RenderCardMarkdown renders one card page: meta, description and comments.
func RenderCardMarkdown(c model.Card, listTitle string, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(c.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn("- ID: " + c.ID)
	if strings.TrimSpace(listTitle) != "" {
		writeLn("- List: " + listTitle + " (" + c.ListID + ")")
	} else {
		writeLn("- List: " + c.ListID)
	}
	if c.Completed {
		writeLn("- Completed: true")
	}
	if c.DueDate != nil {
		writeLn("- Due: " + formatDue(*c.DueDate, opt.loc()))
	}
	if len(c.Labels) > 0 {
		writeLn("- Labels: " + strings.Join(opt.labelNames(c.Labels), " "))
	}
	if len(c.Assignees) > 0 {
		writeLn("- Assignees: " + strings.Join(c.Assignees, ", "))
	}
	if !c.CreatedAt.IsZero() {
		writeLn("- Created: " + c.CreatedAt.In(opt.loc()).Format(time.RFC3339))
	}

	if d := strings.TrimSpace(c.Description); d != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(d)
	}

	comments := append([]model.Comment(nil), opt.Comments[c.ID]...)
	if len(comments) > 0 {
		sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
		writeLn("")
		writeLn("## Comments")
		for _, cm := range comments {
			writeLn("")
			writeLn("### " + cm.CreatedAt.In(opt.loc()).Format("2006-01-02 15:04") + " by " + cm.AuthorID)
			writeLn("")
			writeLn(strings.TrimSpace(cm.Content))
		}
	}
	return buf.String()
}

// formatDue renders an ISO date, plus the time of day when one is set.
func formatDue(t time.Time, loc *time.Location) string {
	v := t.In(loc)
	if v.Hour() == 0 && v.Minute() == 0 {
		return v.Format("2006-01-02")
	}
	return v.Format("2006-01-02 15:04")
}
