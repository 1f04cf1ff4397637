package repl

import (
	"path/filepath"
	"testing"
)

func TestHistoryAppendAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	hist, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer hist.Close()

	for _, line := range []string{"let x = 1;", "let y = 2;", "x + y"} {
		if err := hist.Append(line); err != nil {
			t.Fatalf("Append(%q): %v", line, err)
		}
	}

	recent, err := hist.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []string{"x + y", "let y = 2;"}
	if len(recent) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(recent), recent)
	}
	for i := range want {
		if recent[i] != want[i] {
			t.Fatalf("entry %d: got %q, want %q", i, recent[i], want[i])
		}
	}
}

func TestOpenHistoryCreatesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h1, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	h1.Close()

	h2, err := OpenHistory(path)
	if err != nil {
		t.Fatalf("second open on existing schema: %v", err)
	}
	defer h2.Close()

	if err := h2.Append("reopened"); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
}
