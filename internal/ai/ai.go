// Package ai is a minimal client for OpenAI-compatible chat-completion
// endpoints, covering exactly what the streaming sessions need: one-shot
// completions and incremental streaming with per-fragment callbacks.
package ai

import (
	"errors"
	"fmt"
)

// Category classifies an AI failure for user messaging and for the
// session-scoped error events.
type Category string

const (
	// CategoryConfig: provider/endpoint/model/key missing or malformed.
	// Detected before any network call is made.
	CategoryConfig Category = "configuration"
	// CategoryAuth: the provider rejected the credential.
	CategoryAuth Category = "auth"
	// CategoryTransport: network unreachable, timeout, or a malformed
	// response from the endpoint.
	CategoryTransport Category = "transport"
)

// Error is a categorized AI failure.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai: %s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("ai: %s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func configErr(format string, args ...any) *Error {
	return &Error{Category: CategoryConfig, Message: fmt.Sprintf(format, args...)}
}

func authErr(message string) *Error {
	return &Error{Category: CategoryAuth, Message: message}
}

func transportErr(message string, err error) *Error {
	return &Error{Category: CategoryTransport, Message: message, Err: err}
}

// CategoryOf extracts the failure category from err, defaulting to
// transport for anything uncategorized.
func CategoryOf(err error) Category {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return CategoryTransport
}
