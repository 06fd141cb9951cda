package tui

import (
	"fmt"
	"strings"
	"time"

	"kanban-cli/internal/model"
	"kanban-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
)

type cardDetail struct {
	card       model.Card
	listTitle  string
	labelTitle func(string) string
	comments   []model.Comment
	// commentsLoaded is false until the thread has been fetched once.
	commentsLoaded bool
	pending        bool
	now            time.Time
}

func renderCardDetail(d cardDetail, width, height int) string {
	if width < 20 {
		width = 20
	}
	inner := width - 2
	title := lipgloss.NewStyle().Bold(true).Foreground(colors.SurfaceFg)
	label := metaStyle()

	lines := make([]string, 0, 16)
	for _, ln := range wrapWords(d.card.Title, inner) {
		lines = append(lines, title.Render(ln))
	}
	if d.pending {
		lines = append(lines, styleMuted().Render("saving…"))
	}
	lines = append(lines, "")

	field := func(name, value string) {
		lines = append(lines, label.Render(fmt.Sprintf("%-9s", name))+" "+truncateText(value, inner-10))
	}
	field("List", d.listTitle)
	state := "open"
	if d.card.Completed {
		state = lipgloss.NewStyle().Foreground(colors.Done).Render("done")
	}
	field("State", state)
	if d.card.DueDate != nil {
		due := views.FormatDue(d.card.DueDate, time.Local)
		if s := views.DueState(d.card, d.now); s != "" {
			due += " (" + s + ")"
		}
		field("Due", dueStyle(views.DueState(d.card, d.now)).Render(due))
	}
	if len(d.card.Labels) > 0 {
		names := make([]string, 0, len(d.card.Labels))
		for _, id := range d.card.Labels {
			if d.labelTitle != nil {
				id = d.labelTitle(id)
			}
			names = append(names, "#"+id)
		}
		field("Labels", strings.Join(names, " "))
	}
	if len(d.card.Assignees) > 0 {
		field("Assigned", strings.Join(d.card.Assignees, ", "))
	}
	if d.card.Color != nil {
		field("Color", *d.card.Color)
	}

	lines = append(lines, "")
	if desc := renderMarkdown(d.card.Description, inner); desc != "" {
		lines = append(lines, strings.Split(desc, "\n")...)
	} else {
		lines = append(lines, styleMuted().Render("No description."))
	}

	lines = append(lines, "", title.Render("Comments"))
	switch {
	case !d.commentsLoaded:
		lines = append(lines, styleMuted().Render("loading…"))
	case len(d.comments) == 0:
		lines = append(lines, styleMuted().Render("No comments."))
	default:
		for _, c := range d.comments {
			lines = append(lines, label.Render(c.CreatedAt.Local().Format("Jan 2 15:04")))
			if body := renderMarkdown(c.Content, inner); body != "" {
				lines = append(lines, strings.Split(body, "\n")...)
			}
		}
	}

	pane := lipgloss.NewStyle().Padding(0, 1).Render(normalizePane(strings.Join(lines, "\n"), inner, 0))
	return normalizePane(pane, width, height)
}
