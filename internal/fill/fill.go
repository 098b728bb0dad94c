// Package fill commits a chosen history entry back to the system clipboard
// and optionally re-inserts it into the application that held focus before
// the overlay opened.
package fill

import (
	"errors"
	"fmt"
	"log/slog"

	"go.klb.dev/clipvault/internal/clip"
	"go.klb.dev/clipvault/internal/history"
	"go.klb.dev/clipvault/internal/overlay"
	"go.klb.dev/clipvault/internal/watcher"
)

// PasteError reports that the clipboard write and hide transition succeeded
// but the paste keystroke could not be delivered. Recoverable: the content
// is on the clipboard, the user pastes by hand.
type PasteError struct {
	Err error
}

func (e *PasteError) Error() string { return fmt.Sprintf("paste simulation failed: %v", e.Err) }
func (e *PasteError) Unwrap() error { return e.Err }

// IsPasteError reports whether err is the non-fatal paste-step failure.
func IsPasteError(err error) bool {
	var pe *PasteError
	return errors.As(err, &pe)
}

// Committer wires the history store, clipboard backend, watcher and overlay
// together for the commit-and-refill pipeline.
type Committer struct {
	store    *history.Store
	backend  clip.Backend
	watcher  *watcher.Watcher
	overlay  *overlay.Controller
	injector Injector
}

// New creates a Committer. injector may be nil, which disables the
// paste-simulation step entirely.
func New(store *history.Store, backend clip.Backend, w *watcher.Watcher, ov *overlay.Controller, injector Injector) *Committer {
	if injector == nil {
		injector = noopInjector{}
	}
	return &Committer{store: store, backend: backend, watcher: w, overlay: ov, injector: injector}
}

// Commit writes the entry at index to the system clipboard, hides the
// overlay, and simulates a paste keystroke where the platform supports it.
//
// The index is validated against the live store at call time; an invalid
// index fails with history.ErrIndexOutOfRange and nothing changes. A
// clipboard write failure still completes the hide transition. A paste
// failure is returned as a *PasteError alongside the committed entry — the
// commit itself succeeded.
func (c *Committer) Commit(index int) (history.Entry, error) {
	entry, err := c.store.Get(index)
	if err != nil {
		slog.Info("commit rejected", "index", index, "err", err)
		return history.Entry{}, err
	}

	items := []clip.Item{{MIME: entry.MIME, Data: entry.Data}}
	c.watcher.MarkSelf(items)
	writeErr := c.backend.Write(items)

	// Hide regardless: the user asked to commit, the overlay's job is done.
	c.overlay.HideAfterCommit()

	if writeErr != nil {
		slog.Error("clipboard write failed during commit", "index", index, "err", writeErr)
		return history.Entry{}, fmt.Errorf("clipboard write: %w", writeErr)
	}
	slog.Info("entry committed", "index", index, "mime", entry.MIME, "size", len(entry.Data))

	if err := c.injector.Paste(); err != nil {
		if errors.Is(err, ErrUnsupported) {
			slog.Debug("paste simulation unsupported on this platform")
			return entry, nil
		}
		slog.Warn("paste simulation failed", "err", err)
		return entry, &PasteError{Err: err}
	}
	return entry, nil
}

// Copy writes items to the system clipboard without any history side
// effects: the watcher is told the write is self-originated and the overlay
// is left alone.
func (c *Committer) Copy(items []clip.Item) error {
	c.watcher.MarkSelf(items)
	if err := c.backend.Write(items); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	slog.Debug("copied", "items", len(items))
	return nil
}

// CopyText is Copy for a single plain-text item.
func (c *Committer) CopyText(text string) error {
	return c.Copy([]clip.Item{clip.TextItem(text)})
}
