package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const tuiStateFileName = "tui_state.json"

const maxRecentBoards = 8

// TUIState stores small, user-facing UI state for restoring the last screen on relaunch.
// Callers should tolerate missing or invalid data.
type TUIState struct {
	Version int `json:"version"`

	// View is one of: boards|board|card
	View string `json:"view,omitempty"`

	BoardID     string `json:"boardId,omitempty"`
	FocusListID string `json:"focusListId,omitempty"`
	FocusCardID string `json:"focusCardId,omitempty"`

	ShowDetail bool `json:"showDetail,omitempty"`

	// RecentBoardIDs lists the most recently opened boards, newest first.
	RecentBoardIDs []string `json:"recentBoardIds,omitempty"`
}

// TouchBoard records boardID as the most recently opened board.
func (st *TUIState) TouchBoard(boardID string) {
	boardID = strings.TrimSpace(boardID)
	if st == nil || boardID == "" {
		return
	}
	out := []string{boardID}
	for _, id := range st.RecentBoardIDs {
		if id != boardID && len(out) < maxRecentBoards {
			out = append(out, id)
		}
	}
	st.RecentBoardIDs = out
	st.BoardID = boardID
}

func tuiStatePath(dir string) string {
	return filepath.Join(dir, tuiStateFileName)
}

func LoadTUIState(dir string) (*TUIState, error) {
	if strings.TrimSpace(dir) == "" {
		return &TUIState{Version: 1}, nil
	}
	b, err := os.ReadFile(tuiStatePath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TUIState{Version: 1}, nil
		}
		return nil, err
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Corrupted state is treated as missing.
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func SaveTUIState(dir string, st *TUIState) error {
	if st == nil || strings.TrimSpace(dir) == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return AtomicWriteFile(dir, "tui_state.json.*.tmp", tuiStatePath(dir), b, 0o644)
}
