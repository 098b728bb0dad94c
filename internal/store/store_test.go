package store

import (
	"path/filepath"
	"testing"
	"time"

	"go.klb.dev/clipvault/internal/history"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestReplaceAndLoad(t *testing.T) {
	j := openTestJournal(t)

	now := time.Now()
	in := []history.Entry{
		{MIME: "text/plain", Data: []byte("newest"), CapturedAt: now},
		{MIME: "image/png", Data: []byte{0x89, 0x50}, CapturedAt: now.Add(-time.Minute)},
	}
	if err := j.Replace(in); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	out, err := j.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Load returned %d entries, want 2", len(out))
	}
	if out[0].Text() != "newest" || out[1].MIME != "image/png" {
		t.Fatalf("order not preserved: %v", out)
	}
	if !out[0].CapturedAt.Equal(now) {
		t.Fatalf("CapturedAt = %v, want %v", out[0].CapturedAt, now)
	}
}

func TestReplaceOverwritesPreviousSnapshot(t *testing.T) {
	j := openTestJournal(t)

	if err := j.Replace([]history.Entry{history.NewTextEntry("old")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := j.Replace([]history.Entry{history.NewTextEntry("b"), history.NewTextEntry("a")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	out, err := j.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].Text() != "b" {
		t.Fatalf("Load = %v", out)
	}
}

func TestLoadEmptyJournal(t *testing.T) {
	j := openTestJournal(t)
	out, err := j.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("Load = %v, want empty", out)
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := j.Replace([]history.Entry{history.NewTextEntry("persisted")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	out, err := j2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].Text() != "persisted" {
		t.Fatalf("Load after reopen = %v", out)
	}
}
