// Package event implements the in-process notification bus that connects the
// background watcher, the session manager, and whatever windows (control
// connections) are currently open.
//
// Events form a closed variant set. Delivery is at-most-once per subscriber:
// a subscriber that cannot keep up has events dropped rather than blocking
// the publisher. There is no replay for late subscribers. Order is preserved
// per event type from a single publisher; nothing is guaranteed across types.
package event

import (
	"log/slog"
	"sync"

	"go.klb.dev/clipvault/internal/history"
)

// Event is one bus notification. The concrete types below are the complete
// set; consumers switch on them.
type Event interface {
	kind() string
}

// CaptureChanged announces that the watcher stored a new clipboard capture.
// It intentionally carries no snapshot: an open overlay must not have its
// displayed entries silently replaced mid-navigation.
type CaptureChanged struct {
	MIME string
	Size int
}

// ShowOverlay asks the overlay to become visible (or to replace its
// displayed snapshot if it already is) with the given entries and initial
// cursor position.
type ShowOverlay struct {
	Entries       []history.Entry
	SelectedIndex int
}

// Blur reports that the overlay lost input focus.
type Blur struct{}

// OverlayHidden announces a completed Visible→Hidden transition together
// with the reason ("blur", "commit", "dismiss").
type OverlayHidden struct {
	Reason string
}

// StreamReset tells a result-display consumer to clear its accumulated
// output before the named session's first fragment arrives.
type StreamReset struct {
	SessionID string
	Consumer  string
}

// StreamFragment carries one incremental unit of AI output. Consumers must
// discard fragments whose SessionID does not match the most recent
// StreamReset they observed for their consumer.
type StreamFragment struct {
	SessionID string
	Consumer  string
	Content   string
}

// StreamDone announces end-of-stream for a session with no further
// fragments expected.
type StreamDone struct {
	SessionID string
	Consumer  string
}

// StreamError announces a terminal session failure. Category is one of the
// ai package's error categories.
type StreamError struct {
	SessionID string
	Consumer  string
	Category  string
	Message   string
}

func (CaptureChanged) kind() string { return "capture-changed" }
func (ShowOverlay) kind() string    { return "show-overlay" }
func (Blur) kind() string           { return "blur" }
func (OverlayHidden) kind() string  { return "overlay-hidden" }
func (StreamReset) kind() string    { return "streaming-reset" }
func (StreamFragment) kind() string { return "streaming-fragment" }
func (StreamDone) kind() string     { return "streaming-done" }
func (StreamError) kind() string    { return "streaming-error" }

// Kind returns the wire name of an event, used for logging and for
// re-encoding events onto control connections.
func Kind(e Event) string { return e.kind() }

// Subscription is one subscriber's receive side.
type Subscription struct {
	C    <-chan Event
	ch   chan Event
	name string
}

// Bus fans events out to all current subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber with the given channel buffer. name is
// used only in drop warnings.
func (b *Bus) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{ch: make(chan Event, buffer), name: name}
	sub.C = sub.ch

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	slog.Debug("bus subscriber added", "name", name, "total", n)
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	_, ok := b.subs[sub]
	if ok {
		delete(b.subs, sub)
	}
	n := len(b.subs)
	b.mu.Unlock()

	if ok {
		close(sub.ch)
		slog.Debug("bus subscriber removed", "name", sub.name, "total", n)
	}
}

// Publish delivers e to every current subscriber. Must be non-blocking:
// subscribers with full buffers miss the event.
//
// The sends happen under the read lock. They can never block, and
// Unsubscribe closes a channel only under the write lock, so a send can
// never hit a closed channel.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			slog.Warn("bus subscriber buffer full, dropping", "name", sub.name, "event", e.kind())
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
