package core

import "github.com/vovakirdan/wiredm-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventReady confirms the connection is bound to its user.
	EventReady EventKind = iota
	// EventNewMessage carries a persisted message to sender and receiver.
	EventNewMessage
	// EventError notifies the originating connection about a failed command.
	EventError
)

// Event is sent to clients to describe what happened in the system.
// Events may be shared between clients and must not be mutated.
type Event struct {
	Kind         EventKind
	UserID       string
	ConnectionID string
	Message      *store.Message
	Error        *CoreError
}
