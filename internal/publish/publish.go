// Package publish exports boards as Markdown files. The exports are derived snapshots;
// the backend stays the source of truth.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

type WriteOptions struct {
	RenderOptions
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteBoard writes boards/<id>/index.md plus one page per exported card under cards/.
func WriteBoard(snap store.BoardSnapshot, toDir string, opt WriteOptions) (WriteResult, error) {
	if strings.TrimSpace(snap.Board.ID) == "" {
		return WriteResult{}, errors.New("missing board")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	boardDir := filepath.Join(filepath.Clean(toDir), "boards", snap.Board.ID)
	cardsDir := filepath.Join(boardDir, "cards")
	if err := os.MkdirAll(cardsDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(boardDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderBoardMarkdown(snap, opt.RenderOptions)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	written := []string{indexPath}

	titles := make(map[string]string, len(snap.Lists))
	for _, l := range snap.Lists {
		titles[l.ID] = l.Title
	}
	cards := append([]model.Card(nil), snap.Cards...)
	store.SortCardsByPosition(cards)
	for _, c := range cards {
		if c.Completed && !opt.IncludeCompleted {
			continue
		}
		p := filepath.Join(cardsDir, c.ID+".md")
		if err := writeFile(p, []byte(RenderCardMarkdown(c, titles[c.ListID], opt.RenderOptions)), opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

// WriteCard writes cards/<id>.md.
func WriteCard(c model.Card, listTitle, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	outDir := filepath.Join(filepath.Clean(toDir), "cards")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	p := filepath.Join(outDir, c.ID+".md")
	if err := writeFile(p, []byte(RenderCardMarkdown(c, listTitle, opt.RenderOptions)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{p}}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
