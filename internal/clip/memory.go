package clip

import "sync"

// Memory is an in-process Backend used by tests and by the serve command's
// --no-clipboard mode. Writes replace the held items; Signal simulates an
// external clipboard change.
type Memory struct {
	mu      sync.Mutex
	items   []Item
	watchCh chan struct{}
	failure error
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "in-memory" }

func (m *Memory) Read() ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *Memory) Write(items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}
	m.items = make([]Item, len(items))
	copy(m.items, items)
	return nil
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 {}

// Signal marks the clipboard as changed, as an external copy would.
func (m *Memory) Signal() {
	select {
	case m.watchCh <- struct{}{}:
	default:
	}
}

// SetItems replaces the contents and signals a change.
func (m *Memory) SetItems(items []Item) {
	m.mu.Lock()
	m.items = make([]Item, len(items))
	copy(m.items, items)
	m.mu.Unlock()
	m.Signal()
}

// Fail makes subsequent reads and writes return err; nil restores service.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.failure = err
	m.mu.Unlock()
}
