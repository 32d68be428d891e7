// Package messages defines the Bubbletea messages exchanged by the chat TUI.
package messages

import (
	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// StreamEvent carries one event of the answer stream into the model.
// Stream identifies the chat call so events of a cancelled call are dropped.
type StreamEvent struct {
	Stream int
	Event  domain.Event
}

// StreamClosed is delivered once the chat call returns.
// Err is nil when the stream ended with a done or error event.
type StreamClosed struct {
	Stream int
	Err    error
}

// SessionCleared reports the outcome of clearing the session history.
type SessionCleared struct {
	Err error
}
