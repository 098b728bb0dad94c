// Package message defines the clipvault control protocol.
//
// All messages are newline-delimited JSON. Payloads are always base64-encoded
// so that binary content (images, etc.) is safe to embed in JSON strings.
// Each message is exactly one line: <json>\n
package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of message.
type Type string

// Requests, CLI to daemon.
const (
	TypeHistory   Type = "HISTORY"
	TypeFill      Type = "FILL"
	TypeRemove    Type = "REMOVE"
	TypeClear     Type = "CLEAR"
	TypeCopy      Type = "COPY"
	TypePaste     Type = "PASTE"
	TypeShow      Type = "SHOW"
	TypeNext      Type = "NEXT"
	TypePrev      Type = "PREV"
	TypeHide      Type = "HIDE"
	TypeWatch     Type = "WATCH"
	TypeTranslate Type = "TRANSLATE"
	TypeExplain   Type = "EXPLAIN"
	TypeCancel    Type = "CANCEL"
	TypeStatus    Type = "STATUS"
	TypePing      Type = "PING"
	TypeAuth      Type = "AUTH"
)

// Responses, daemon to CLI.
const (
	TypeHistoryResponse Type = "HISTORY_RESPONSE"
	TypeStatusResponse  Type = "STATUS_RESPONSE"
	TypeOK              Type = "OK"
	TypeError           Type = "ERROR"
	TypeEvent           Type = "EVENT"
	TypePong            Type = "PONG"
)

// Item is a single clipboard representation with a MIME type.
// Data is always base64-encoded.
type Item struct {
	MIME string `json:"mime"`
	Data string `json:"data"` // base64-encoded
}

// NewTextItem creates a text/plain Item from a plain string.
func NewTextItem(text string) Item {
	return Item{
		MIME: "text/plain",
		Data: base64.StdEncoding.EncodeToString([]byte(text)),
	}
}

// NewBinaryItem creates an Item from raw bytes with the given MIME type.
func NewBinaryItem(mime string, data []byte) Item {
	return Item{
		MIME: mime,
		Data: base64.StdEncoding.EncodeToString(data),
	}
}

// Decode returns the raw bytes of the item payload.
func (it Item) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(it.Data)
}

// EntryInfo describes one history entry in listings and overlay events.
// Preview is a truncated plain-text rendering; full content travels only on
// FILL, PASTE and COPY.
type EntryInfo struct {
	Index      int       `json:"index"`
	MIME       string    `json:"mime"`
	Size       int       `json:"size"`
	Preview    string    `json:"preview,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// SessionInfo describes one AI streaming session in a STATUS_RESPONSE.
type SessionInfo struct {
	ID        string    `json:"id"`
	Consumer  string    `json:"consumer"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// StatusInfo is the STATUS_RESPONSE body.
type StatusInfo struct {
	Version     string        `json:"version"`
	Backend     string        `json:"backend"`
	Entries     int           `json:"entries"`
	Capacity    int           `json:"capacity"`
	OverlayUp   bool          `json:"overlay_up"`
	Watchers    int           `json:"watchers"`
	JournalPath string        `json:"journal_path,omitempty"`
	Sessions    []SessionInfo `json:"sessions,omitempty"`
}

// EventInfo is the EVENT body pushed to WATCH subscribers. Kind carries the
// bus event name; the remaining fields are kind-specific.
type EventInfo struct {
	Kind string `json:"kind"`

	// capture-changed
	MIME string `json:"mime,omitempty"`
	Size int    `json:"size,omitempty"`

	// show-overlay
	Entries       []EntryInfo `json:"entries,omitempty"`
	SelectedIndex int         `json:"selected_index,omitempty"`

	// overlay-hidden
	Reason string `json:"reason,omitempty"`

	// streaming-*
	SessionID string `json:"session_id,omitempty"`
	Consumer  string `json:"consumer,omitempty"`
	Content   string `json:"content,omitempty"`
	Category  string `json:"category,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type Type `json:"type"`

	// FILL / REMOVE / SHOW / TRANSLATE / EXPLAIN — history index.
	// A pointer so that index 0 and "unset" stay distinguishable.
	Index *int `json:"index,omitempty"`

	// COPY — content to place on the clipboard; PASTE response — current
	// newest entry
	Items []Item `json:"items,omitempty"`

	// TRANSLATE / EXPLAIN — explicit text (overrides Index) and language
	// selectors
	Text           string `json:"text,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`

	// CANCEL — consumer slot name. OK — id of a freshly started session.
	Consumer  string `json:"consumer,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// HIDE — why the overlay is going away ("blur" or "dismiss",
	// defaulting to dismiss)
	Reason string `json:"reason,omitempty"`

	// AUTH — token is base64-encoded
	Payload string `json:"payload,omitempty"`

	// HISTORY_RESPONSE
	Entries []EntryInfo `json:"entries,omitempty"`

	// STATUS_RESPONSE
	Status *StatusInfo `json:"status,omitempty"`

	// EVENT
	Event *EventInfo `json:"event,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}

// NewIndexRequest builds a request of type t addressing one history entry.
func NewIndexRequest(t Type, index int) *Message {
	return &Message{Type: t, Index: &index}
}

// NewError builds an ERROR response.
func NewError(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// TextPayload returns the decoded content of the first text/plain item, or "".
func (m *Message) TextPayload() string {
	for _, it := range m.Items {
		if it.MIME == "text/plain" {
			b, err := it.Decode()
			if err != nil {
				return ""
			}
			return string(b)
		}
	}
	return ""
}
