// Package session runs cancellable AI streaming sessions, one active per
// consumer surface. Starting a new session for a consumer supersedes any
// session still running there: the old one is cancelled, its partial output
// discarded, and the display told to reset before the new session's first
// fragment. Fragments, completion, and failure all travel over the event
// bus tagged with the session ID, so a consumer can discard stragglers from
// a session it no longer cares about.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/clipvault/internal/ai"
	"go.klb.dev/clipvault/internal/event"
)

// Consumer surfaces. Each names an independent result display with its own
// session slot; a translation never supersedes an explanation.
const (
	ConsumerTranslation = "translation"
	ConsumerExplanation = "explanation"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusStreaming Status = "streaming"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Info is a point-in-time snapshot of one session for introspection.
type Info struct {
	ID        string
	Consumer  string
	Status    Status
	Output    string
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

type session struct {
	id        string
	consumer  string
	status    Status
	output    []byte
	errMsg    string
	startedAt time.Time
	endedAt   time.Time
}

func (s *session) info() Info {
	return Info{
		ID:        s.id,
		Consumer:  s.consumer,
		Status:    s.status,
		Output:    string(s.output),
		Error:     s.errMsg,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
	}
}

type slot struct {
	current *session
	cancel  context.CancelFunc
}

// Manager owns the per-consumer session slots.
//
// All event publishing for a consumer happens under the manager mutex, so
// the bus sees a strict order: once a new session's reset is published, no
// fragment from the superseded session can follow it.
type Manager struct {
	bus *event.Bus

	mu     sync.Mutex
	client *ai.Client
	slots  map[string]*slot
	closed bool
}

// NewManager builds a Manager publishing on bus and talking through client.
func NewManager(bus *event.Bus, client *ai.Client) *Manager {
	return &Manager{
		bus:    bus,
		client: client,
		slots:  make(map[string]*slot),
	}
}

// SetClient swaps the AI client. In-flight sessions keep the client they
// started with; only new sessions see the change. Used on config reload.
func (m *Manager) SetClient(client *ai.Client) {
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
}

// Translate starts a translation session for text and returns its ID.
// Configuration problems are reported synchronously and no session starts.
func (m *Manager) Translate(text, sourceLanguage, targetLanguage string) (string, error) {
	return m.start(ConsumerTranslation, ai.TranslatePrompt(text, sourceLanguage, targetLanguage))
}

// Explain starts an explanation session for text and returns its ID.
func (m *Manager) Explain(text, targetLanguage string) (string, error) {
	return m.start(ConsumerExplanation, ai.ExplainPrompt(text, targetLanguage))
}

func (m *Manager) start(consumer, prompt string) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", errors.New("session manager is shut down")
	}
	client := m.client
	if err := client.Config().Validate(); err != nil {
		m.mu.Unlock()
		return "", err
	}

	sl := m.slots[consumer]
	if sl == nil {
		sl = &slot{}
		m.slots[consumer] = sl
	}
	m.supersedeLocked(sl)

	s := &session{
		id:        uuid.NewString(),
		consumer:  consumer,
		status:    StatusStreaming,
		startedAt: time.Now(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	sl.current = s
	sl.cancel = cancel

	// Published under the lock: everything after this point on the bus
	// either carries the new ID or belongs to another consumer.
	m.bus.Publish(event.StreamReset{SessionID: s.id, Consumer: consumer})
	m.mu.Unlock()

	go m.run(ctx, client, s, prompt)
	return s.id, nil
}

// supersedeLocked cancels the slot's running session, if any, and discards
// its partial output.
func (m *Manager) supersedeLocked(sl *slot) {
	if sl.current == nil || sl.current.status != StatusStreaming {
		return
	}
	sl.cancel()
	sl.current.status = StatusCancelled
	sl.current.output = nil
	sl.current.endedAt = time.Now()
}

func (m *Manager) run(ctx context.Context, client *ai.Client, s *session, prompt string) {
	err := client.Stream(ctx, prompt, func(fragment string) {
		m.fragment(s, fragment)
	})
	m.finish(s, err)
}

// fragment appends one delta to s and republishes it, unless s has been
// superseded in the meantime.
func (m *Manager) fragment(s *session, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(s) {
		return
	}
	s.output = append(s.output, content...)
	m.bus.Publish(event.StreamFragment{SessionID: s.id, Consumer: s.consumer, Content: content})
}

func (m *Manager) finish(s *session, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(s) {
		return
	}
	s.endedAt = time.Now()
	switch {
	case err == nil:
		s.status = StatusDone
		m.bus.Publish(event.StreamDone{SessionID: s.id, Consumer: s.consumer})
	case errors.Is(err, context.Canceled):
		// Explicit cancel while Stream was in flight. Supersession never
		// reaches here because the superseded session is no longer current.
		s.status = StatusCancelled
		s.output = nil
	default:
		s.status = StatusFailed
		s.output = nil
		s.errMsg = err.Error()
		m.bus.Publish(event.StreamError{
			SessionID: s.id,
			Consumer:  s.consumer,
			Category:  string(ai.CategoryOf(err)),
			Message:   err.Error(),
		})
	}
}

func (m *Manager) currentLocked(s *session) bool {
	sl := m.slots[s.consumer]
	return sl != nil && sl.current == s && s.status == StatusStreaming
}

// Cancel stops the consumer's running session, if any, discarding its
// output and telling the display to clear. Reports whether a session was
// actually running.
func (m *Manager) Cancel(consumer string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl := m.slots[consumer]
	if sl == nil || sl.current == nil || sl.current.status != StatusStreaming {
		return false
	}
	id := sl.current.id
	m.supersedeLocked(sl)
	m.bus.Publish(event.StreamReset{SessionID: id, Consumer: consumer})
	return true
}

// Status returns the consumer's most recent session, running or finished.
func (m *Manager) Status(consumer string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl := m.slots[consumer]
	if sl == nil || sl.current == nil {
		return Info{}, false
	}
	return sl.current.info(), true
}

// Active lists every session currently streaming.
func (m *Manager) Active() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Info
	for _, sl := range m.slots {
		if sl.current != nil && sl.current.status == StatusStreaming {
			out = append(out, sl.current.info())
		}
	}
	return out
}

// Close cancels every running session and rejects new ones.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, sl := range m.slots {
		m.supersedeLocked(sl)
	}
}
