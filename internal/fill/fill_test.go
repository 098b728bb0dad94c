package fill

import (
	"errors"
	"testing"

	"go.klb.dev/clipvault/internal/clip"
	"go.klb.dev/clipvault/internal/event"
	"go.klb.dev/clipvault/internal/history"
	"go.klb.dev/clipvault/internal/overlay"
	"go.klb.dev/clipvault/internal/watcher"
)

type fakeInjector struct {
	calls int
	err   error
}

func (f *fakeInjector) Paste() error {
	f.calls++
	return f.err
}

type fixture struct {
	store    *history.Store
	backend  *clip.Memory
	overlay  *overlay.Controller
	injector *fakeInjector
	commit   *Committer
}

func newFixture(texts ...string) *fixture {
	bus := event.New()
	store := history.New(10)
	for i := len(texts) - 1; i >= 0; i-- {
		store.Push(history.NewTextEntry(texts[i]))
	}
	backend := clip.NewMemory()
	w := watcher.New(backend, store, bus)
	ov := overlay.New(bus)
	inj := &fakeInjector{}
	return &fixture{
		store:    store,
		backend:  backend,
		overlay:  ov,
		injector: inj,
		commit:   New(store, backend, w, ov, inj),
	}
}

func clipboardText(t *testing.T, backend *clip.Memory) string {
	t.Helper()
	items, err := backend.Read()
	if err != nil {
		t.Fatalf("backend read: %v", err)
	}
	for _, it := range items {
		if it.MIME == "text/plain" {
			return string(it.Data)
		}
	}
	return ""
}

func TestCommitWritesClipboardAndHides(t *testing.T) {
	f := newFixture("a", "b", "c")
	f.overlay.Show(f.store.Snapshot(), 1)

	entry, err := f.commit.Commit(2)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if entry.Text() != "c" {
		t.Fatalf("committed %q, want c", entry.Text())
	}
	if got := clipboardText(t, f.backend); got != "c" {
		t.Fatalf("clipboard = %q, want c", got)
	}
	if f.overlay.Visible() {
		t.Fatal("overlay still visible after commit")
	}
	if f.injector.calls != 1 {
		t.Fatalf("injector calls = %d, want 1", f.injector.calls)
	}
}

func TestCommitInvalidIndexRejectedUnchanged(t *testing.T) {
	f := newFixture("a")
	f.overlay.Show(f.store.Snapshot(), 0)

	_, err := f.commit.Commit(5)
	if !errors.Is(err, history.ErrIndexOutOfRange) {
		t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
	}
	if !f.overlay.Visible() {
		t.Fatal("rejected commit must not hide the overlay")
	}
	if f.store.Len() != 1 {
		t.Fatal("rejected commit mutated the store")
	}
	if f.injector.calls != 0 {
		t.Fatal("rejected commit attempted a paste")
	}
}

func TestCommitPasteFailureIsNonFatal(t *testing.T) {
	f := newFixture("a")
	f.overlay.Show(f.store.Snapshot(), 0)
	f.injector.err = errors.New("target window gone")

	entry, err := f.commit.Commit(0)
	if !IsPasteError(err) {
		t.Fatalf("err = %v, want PasteError", err)
	}
	if entry.Text() != "a" {
		t.Fatal("paste failure must not void the commit")
	}
	if got := clipboardText(t, f.backend); got != "a" {
		t.Fatal("clipboard write must survive a paste failure")
	}
	if f.overlay.Visible() {
		t.Fatal("hide transition must survive a paste failure")
	}
}

func TestCommitUnsupportedInjectorSilent(t *testing.T) {
	f := newFixture("a")
	f.injector.err = ErrUnsupported

	if _, err := f.commit.Commit(0); err != nil {
		t.Fatalf("unsupported paste should not surface an error, got %v", err)
	}
}

func TestCommitClipboardFailureStillHides(t *testing.T) {
	f := newFixture("a")
	f.overlay.Show(f.store.Snapshot(), 0)
	f.backend.Fail(clip.ErrUnavailable)

	_, err := f.commit.Commit(0)
	if err == nil || IsPasteError(err) {
		t.Fatalf("err = %v, want hard clipboard error", err)
	}
	if f.overlay.Visible() {
		t.Fatal("hide transition must complete even when the write fails")
	}
	if f.injector.calls != 0 {
		t.Fatal("paste must not run after a failed clipboard write")
	}
}

func TestCopyTextNoHistorySideEffects(t *testing.T) {
	f := newFixture("existing")

	if err := f.commit.CopyText("copied"); err != nil {
		t.Fatalf("CopyText: %v", err)
	}
	if got := clipboardText(t, f.backend); got != "copied" {
		t.Fatalf("clipboard = %q, want copied", got)
	}
	if f.store.Len() != 1 {
		t.Fatal("CopyText touched the history store")
	}
}
