package format

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sample struct {
	BoardID   string    `json:"boardId"`
	Position  int       `json:"position"`
	Done      bool      `json:"isCompleted"`
	Labels    []string  `json:"labels"`
	UpdatedAt time.Time `json:"updatedAt"`
	Color     *string   `json:"color"`
}

func TestWriteData_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteData(&buf, map[string]int{"n": 1}, nil, "json", false); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"data":{"n":1}}` {
		t.Fatalf("got %s", got)
	}
}

func TestWriteEDN_KeywordsAndInstants(t *testing.T) {
	var buf bytes.Buffer
	v := sample{
		BoardID:   "b1",
		Position:  3,
		Labels:    []string{"x", "y"},
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := Write(&buf, Envelope{Data: v}, "edn", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	want := `{:data {:board-id "b1" :color nil :is-completed false :labels ["x" "y"] :position 3 :updated-at #inst "2026-01-02T03:04:05Z"}}`
	if got != want {
		t.Fatalf("edn mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestWriteEDN_PrettyEmptyCollections(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]any{"cards": []string{}, "meta": map[string]any{}}, true); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	want := "{\n  :cards []\n  :meta {}\n}\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWriteEDN_PlainStringsStayStrings(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEDN(&buf, []string{"2026-01-02", "hello"}, false); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `["2026-01-02" "hello"]` {
		t.Fatalf("got %s", got)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "yaml", false); err == nil {
		t.Fatalf("expected error")
	}
	if Valid("yaml") || !Valid("") || !Valid("EDN") {
		t.Fatalf("Valid mismatch")
	}
}
