package docs

import (
	"strings"
	"testing"
)

func TestTopicsAreSortedAndReadable(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("expected embedded topics")
	}
	for i, topic := range topics {
		if i > 0 && topics[i-1] > topic {
			t.Fatalf("expected sorted topics, got %v", topics)
		}
		body, ok := Get(topic)
		if !ok || !strings.HasPrefix(body, "# ") {
			t.Fatalf("topic %q: expected a markdown body starting with a heading", topic)
		}
		if Summary(topic) == "" {
			t.Fatalf("topic %q: expected a summary", topic)
		}
	}
}

func TestGet(t *testing.T) {
	if _, ok := Get("KEYS"); !ok {
		t.Fatalf("expected topic lookup to ignore case")
	}
	for _, bad := range []string{"", "  ", "nope", "../docs"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	if got := Summary("exit-codes"); got != "Exit codes" {
		t.Fatalf("expected summary %q, got %q", "Exit codes", got)
	}
}
