// Package overlay holds the state machines for the transient history
// window: its Hidden/Visible lifecycle and the selection cursor over the
// snapshot it displays.
//
// Exactly one Controller exists per daemon, which is what guarantees the
// at-most-one-visible-overlay invariant. The controller owns a frozen
// snapshot taken at show time; captures that land in the store while the
// overlay is open do not disturb what the user is navigating.
package overlay

import (
	"errors"
	"log/slog"
	"sync"

	"go.klb.dev/clipvault/internal/event"
	"go.klb.dev/clipvault/internal/history"
)

// CursorNone is the cursor sentinel for an empty snapshot.
const CursorNone = -1

// Visibility is the overlay lifecycle state.
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "hidden"
}

// ErrNotVisible is returned by navigation and commit-prep operations when
// no overlay is open.
var ErrNotVisible = errors.New("overlay: not visible")

// Controller is the single owner of overlay visibility and cursor state.
type Controller struct {
	bus *event.Bus

	mu       sync.Mutex
	state    Visibility
	snapshot []history.Entry
	cursor   int
}

// New returns a hidden Controller.
func New(bus *event.Bus) *Controller {
	return &Controller{bus: bus, state: Hidden, cursor: CursorNone}
}

// Show transitions Hidden→Visible with the given snapshot and initial
// cursor, or — if already Visible — replaces the displayed snapshot and
// resets the cursor rather than stacking a second instance. selectedIndex
// out of range (including the conventional -1 for "unspecified") falls back
// to 0, or CursorNone when the snapshot is empty.
func (c *Controller) Show(snapshot []history.Entry, selectedIndex int) {
	c.mu.Lock()
	replace := c.state == Visible
	c.state = Visible
	c.snapshot = snapshot
	switch {
	case len(snapshot) == 0:
		c.cursor = CursorNone
	case selectedIndex >= 0 && selectedIndex < len(snapshot):
		c.cursor = selectedIndex
	default:
		c.cursor = 0
	}
	cur := c.cursor
	c.mu.Unlock()

	slog.Debug("overlay show", "entries", len(snapshot), "cursor", cur, "replaced", replace)
	c.bus.Publish(event.ShowOverlay{Entries: snapshot, SelectedIndex: cur})
}

// Blur handles loss of focus: Visible→Hidden.
func (c *Controller) Blur() { c.hide("blur") }

// Dismiss handles an explicit escape: Visible→Hidden.
func (c *Controller) Dismiss() { c.hide("dismiss") }

// HideAfterCommit transitions to Hidden after a successful fill commit.
func (c *Controller) HideAfterCommit() { c.hide("commit") }

func (c *Controller) hide(reason string) {
	c.mu.Lock()
	if c.state == Hidden {
		c.mu.Unlock()
		return
	}
	c.state = Hidden
	c.snapshot = nil
	c.cursor = CursorNone
	c.mu.Unlock()

	slog.Debug("overlay hidden", "reason", reason)
	c.bus.Publish(event.OverlayHidden{Reason: reason})
}

// Next moves the cursor one entry down (toward older entries), clamped at
// the end. No-op on an empty snapshot or a hidden overlay.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Visible || c.cursor == CursorNone {
		return
	}
	if c.cursor < len(c.snapshot)-1 {
		c.cursor++
	}
}

// Prev moves the cursor one entry up, clamped at the head.
func (c *Controller) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Visible || c.cursor == CursorNone {
		return
	}
	if c.cursor > 0 {
		c.cursor--
	}
}

// SetCursor places the cursor directly on index (pointer hover or click).
// Out-of-range indices are rejected.
func (c *Controller) SetCursor(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Visible {
		return ErrNotVisible
	}
	if index < 0 || index >= len(c.snapshot) {
		return history.ErrIndexOutOfRange
	}
	c.cursor = index
	return nil
}

// Cursor returns the current cursor position, CursorNone when unset.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Selected returns the entry under the cursor. Fails with ErrNotVisible or
// ErrIndexOutOfRange when there is no valid selection; nothing is mutated.
func (c *Controller) Selected() (history.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Visible {
		return history.Entry{}, ErrNotVisible
	}
	if c.cursor == CursorNone || c.cursor >= len(c.snapshot) {
		return history.Entry{}, history.ErrIndexOutOfRange
	}
	return c.snapshot[c.cursor], nil
}

// EntryRemoved clamps the cursor after an entry was deleted from the
// displayed snapshot: min(cursor, newLen-1), or CursorNone when the
// snapshot became empty. The caller supplies the refreshed snapshot.
func (c *Controller) EntryRemoved(snapshot []history.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Visible {
		return
	}
	c.snapshot = snapshot
	if len(snapshot) == 0 {
		c.cursor = CursorNone
		return
	}
	if c.cursor >= len(snapshot) {
		c.cursor = len(snapshot) - 1
	}
	if c.cursor < 0 {
		c.cursor = 0
	}
}

// Visible reports whether an overlay is currently shown.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Visible
}

// Snapshot returns the entries the overlay is currently displaying.
func (c *Controller) Snapshot() []history.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]history.Entry, len(c.snapshot))
	copy(out, c.snapshot)
	return out
}
