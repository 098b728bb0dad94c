// Package watcher runs the background loop that feeds the history store
// from the system clipboard.
package watcher

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"go.klb.dev/clipvault/internal/clip"
	"go.klb.dev/clipvault/internal/event"
	"go.klb.dev/clipvault/internal/history"
)

// Watcher observes the clipboard backend and pushes new captures into the
// store. It is the store's only steady-state writer.
type Watcher struct {
	backend clip.Backend
	store   *history.Store
	bus     *event.Bus

	mu       sync.Mutex
	lastSeen []clip.Item
	selfMark []clip.Item // content we wrote ourselves; next sighting is not a capture
}

// New creates a Watcher. Call Run in a goroutine.
func New(backend clip.Backend, store *history.Store, bus *event.Bus) *Watcher {
	return &Watcher{backend: backend, store: store, bus: bus}
}

// MarkSelf records content about to be written to the clipboard by this
// process (fill commit, copy_text). The next observation of exactly that
// content updates last-seen state without a push or capture event, breaking
// the feedback loop that would otherwise reset an open overlay.
func (w *Watcher) MarkSelf(items []clip.Item) {
	w.mu.Lock()
	w.selfMark = items
	w.mu.Unlock()
}

// Run drives the watch loop until ctx is cancelled. A failed clipboard read
// is transient: logged and retried on the next change signal. Run only ever
// returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("clipboard watcher started", "backend", w.backend.Name())
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard watcher stopped")
			return ctx.Err()
		case <-w.backend.Watch():
			w.observe()
		}
	}
}

// observe handles one change signal.
func (w *Watcher) observe() {
	items, err := w.backend.Read()
	if err != nil {
		slog.Warn("clipboard read failed", "err", err)
		return
	}
	if len(items) == 0 {
		return
	}

	w.mu.Lock()
	if itemsEqual(items, w.lastSeen) {
		w.mu.Unlock()
		return
	}
	w.lastSeen = items
	self := w.selfMark != nil && itemsEqual(items, w.selfMark)
	if self {
		w.selfMark = nil
	}
	w.mu.Unlock()

	if self {
		slog.Debug("ignoring self-originated clipboard write")
		return
	}

	entry, ok := primaryEntry(items)
	if !ok {
		return
	}
	if w.store.Push(entry) {
		slog.Debug("clipboard capture stored", "mime", entry.MIME, "size", len(entry.Data))
		w.bus.Publish(event.CaptureChanged{MIME: entry.MIME, Size: len(entry.Data)})
	}
}

// primaryEntry picks the representation to keep: text wins over image.
// Whitespace-only text is not worth capturing.
func primaryEntry(items []clip.Item) (history.Entry, bool) {
	var img *clip.Item
	for i := range items {
		switch items[i].MIME {
		case "text/plain":
			if len(bytes.TrimSpace(items[i].Data)) == 0 {
				continue
			}
			return history.NewEntry(items[i].MIME, items[i].Data), true
		case "image/png":
			img = &items[i]
		}
	}
	if img != nil {
		return history.NewEntry(img.MIME, img.Data), true
	}
	return history.Entry{}, false
}

func itemsEqual(a, b []clip.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].MIME != b[i].MIME || !bytes.Equal(a[i].Data, b[i].Data) {
			return false
		}
	}
	return true
}
