// Package history implements the bounded clipboard history store.
//
// The store is newest-first: index 0 is always the most recent capture.
// Writes are serialized behind a mutex (the watcher is the only steady-state
// writer); readers take immutable snapshots and never observe a
// half-applied mutation.
package history

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// MinCapacity and MaxCapacity bound the configurable history size.
	MinCapacity = 1
	MaxCapacity = 1000

	// DefaultCapacity is used when no capacity is configured.
	DefaultCapacity = 50
)

// ErrIndexOutOfRange is returned by index-addressed operations when the
// index does not name a live entry at call time.
var ErrIndexOutOfRange = errors.New("history: index out of range")

// MIMEText is the MIME tag for plain-text entries.
const MIMEText = "text/plain"

// Entry is one captured clipboard item. Immutable once created: it is only
// ever removed from the store, never edited in place.
type Entry struct {
	MIME       string    `json:"mime"`
	Data       []byte    `json:"data"`
	CapturedAt time.Time `json:"captured_at"`
}

// NewTextEntry creates a text/plain Entry stamped with the current time.
func NewTextEntry(text string) Entry {
	return Entry{MIME: MIMEText, Data: []byte(text), CapturedAt: time.Now()}
}

// NewEntry creates an Entry with the given MIME tag. The data is copied so
// the caller may reuse its buffer.
func NewEntry(mime string, data []byte) Entry {
	return Entry{MIME: mime, Data: bytes.Clone(data), CapturedAt: time.Now()}
}

// Text returns the entry payload as a string. Meaningful for text entries;
// binary entries round-trip through it unharmed but unreadably.
func (e Entry) Text() string { return string(e.Data) }

// ContentEqual reports whether two entries carry identical content,
// ignoring the capture timestamp.
func (e Entry) ContentEqual(other Entry) bool {
	return e.MIME == other.MIME && bytes.Equal(e.Data, other.Data)
}

// Journal receives full snapshots after each mutation so history can be
// persisted out of band. Implementations must not block the caller for
// long; the store invokes it while holding no locks.
type Journal interface {
	Replace(entries []Entry) error
}

// Store is the bounded, deduplicated clipboard history.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry // newest first
	capacity int

	journal Journal
}

// New returns an empty Store. capacity is clamped to [MinCapacity, MaxCapacity];
// zero or negative values fall back to DefaultCapacity.
func New(capacity int) *Store {
	return &Store{capacity: clampCapacity(capacity)}
}

func clampCapacity(c int) int {
	switch {
	case c <= 0:
		return DefaultCapacity
	case c < MinCapacity:
		return MinCapacity
	case c > MaxCapacity:
		return MaxCapacity
	}
	return c
}

// SetJournal registers a persistence journal. Pass nil to detach.
func (s *Store) SetJournal(j Journal) {
	s.mu.Lock()
	s.journal = j
	s.mu.Unlock()
}

// Capacity returns the current capacity.
func (s *Store) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

// SetCapacity changes the capacity, trimming the tail immediately if the
// store is over the new bound.
func (s *Store) SetCapacity(c int) {
	s.mu.Lock()
	s.capacity = clampCapacity(c)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[:s.capacity]
	}
	s.mu.Unlock()
	s.persist()
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Push inserts entry at the head. Pushing content identical to the current
// head is a no-op: no duplicate, no reorder. Returns true if the store
// changed. The tail is trimmed to capacity after insertion.
func (s *Store) Push(entry Entry) bool {
	if len(entry.Data) == 0 {
		return false
	}

	s.mu.Lock()
	if len(s.entries) > 0 && s.entries[0].ContentEqual(entry) {
		s.mu.Unlock()
		return false
	}
	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[:s.capacity]
	}
	n := len(s.entries)
	s.mu.Unlock()

	slog.Debug("history push", "mime", entry.MIME, "size", len(entry.Data), "len", n)
	s.persist()
	return true
}

// Get returns the entry at index.
func (s *Store) Get(index int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.entries) {
		return Entry{}, ErrIndexOutOfRange
	}
	return s.entries[index], nil
}

// RemoveAt removes the entry at index, shifting later entries up.
// The index is validated against the live store at call time.
func (s *Store) RemoveAt(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.entries) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	n := len(s.entries)
	s.mu.Unlock()

	slog.Debug("history remove", "index", index, "len", n)
	s.persist()
	return nil
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	s.persist()
}

// Snapshot returns an ordered copy safe for concurrent reading. The backing
// slice is fresh on every call; entry data is shared but immutable.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Restore replaces the store contents with entries (newest first), trimming
// to capacity. Used when loading a persisted history at startup; it does
// not write back to the journal.
func (s *Store) Restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(entries) > s.capacity {
		entries = entries[:s.capacity]
	}
	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
}

// persist hands the current snapshot to the journal, if any. Failures are
// logged and otherwise ignored: the next mutation re-persists the full
// snapshot anyway.
func (s *Store) persist() {
	s.mu.RLock()
	j := s.journal
	s.mu.RUnlock()
	if j == nil {
		return
	}
	if err := j.Replace(s.Snapshot()); err != nil {
		slog.Warn("history journal write failed", "err", err)
	}
}
