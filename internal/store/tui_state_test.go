package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTUIState_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Missing file => default state.
	st0, err := LoadTUIState(dir)
	if err != nil {
		t.Fatalf("LoadTUIState: %v", err)
	}
	if st0 == nil || st0.Version != 1 {
		t.Fatalf("expected default Version=1; got %#v", st0)
	}

	want := &TUIState{
		Version:        1,
		View:           "card",
		BoardID:        "b1",
		FocusListID:    "l1",
		FocusCardID:    "c1",
		ShowDetail:     true,
		RecentBoardIDs: []string{"b1", "b0"},
	}
	if err := SaveTUIState(dir, want); err != nil {
		t.Fatalf("SaveTUIState: %v", err)
	}

	got, err := LoadTUIState(dir)
	if err != nil {
		t.Fatalf("LoadTUIState (after save): %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestTUIState_CorruptFileIsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, tuiStateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := LoadTUIState(dir)
	if err != nil {
		t.Fatalf("LoadTUIState: %v", err)
	}
	if st.Version != 1 || st.BoardID != "" {
		t.Fatalf("expected default state, got %#v", st)
	}
}

func TestTUIState_TouchBoard(t *testing.T) {
	st := &TUIState{RecentBoardIDs: []string{"a", "b", "c"}}
	st.TouchBoard("b")
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(st.RecentBoardIDs, want) {
		t.Fatalf("recent = %v, want %v", st.RecentBoardIDs, want)
	}
	if st.BoardID != "b" {
		t.Fatalf("BoardID = %q", st.BoardID)
	}

	for i := 0; i < 20; i++ {
		st.TouchBoard(string(rune('d' + i)))
	}
	if len(st.RecentBoardIDs) != maxRecentBoards {
		t.Fatalf("recent length = %d, want %d", len(st.RecentBoardIDs), maxRecentBoards)
	}
}
