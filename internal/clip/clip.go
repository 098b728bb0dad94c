// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_darwin.go   — macOS via golang.design/x/clipboard + cgo changeCount
//	clip_windows.go  — Windows via golang.design/x/clipboard + AddClipboardFormatListener
//	clip_linux.go    — Linux via golang.design/x/clipboard, polling only
//	clip_other.go    — headless / container stub
package clip

import "errors"

// ErrUnavailable is returned by Read/Write when no clipboard is reachable
// (headless environment, display server gone away). Callers treat it as
// transient: log and retry next cycle.
var ErrUnavailable = errors.New("clipboard unavailable")

// Item is a single clipboard representation with a MIME type tag.
type Item struct {
	MIME string
	Data []byte
}

// TextItem wraps a string as a text/plain Item.
func TextItem(text string) Item {
	return Item{MIME: "text/plain", Data: []byte(text)}
}

// Backend is the interface all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard contents as typed items.
	// Returns nil, nil when the clipboard is empty or holds only
	// unsupported types.
	Read() ([]Item, error)

	// Write replaces the clipboard contents with the provided items.
	Write(items []Item) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is never closed. On platforms without native
	// change notification this is implemented by polling; the caller should
	// Read() when it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// headlessBackend is the no-op backend for environments without a display
// server. It never produces Watch events; reads and writes report
// ErrUnavailable so the watcher logs and carries on.
type headlessBackend struct {
	watchCh chan struct{}
}

func newHeadless() *headlessBackend {
	return &headlessBackend{watchCh: make(chan struct{})}
}

func (b *headlessBackend) Name() string           { return "headless (no-op)" }
func (b *headlessBackend) Read() ([]Item, error)  { return nil, ErrUnavailable }
func (b *headlessBackend) Write([]Item) error     { return ErrUnavailable }
func (b *headlessBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *headlessBackend) Close()                 {}
