package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrValidation is the parent of every input validation failure.
	ErrValidation = errors.New("validation error")
	// ErrMissingReceiver is returned when a message has no receiver.
	ErrMissingReceiver = fmt.Errorf("%w: receiverId is required", ErrValidation)
	// ErrMissingSender is returned when a message has no sender.
	ErrMissingSender = fmt.Errorf("%w: senderId is required", ErrValidation)
	// ErrEmptyText is returned when the text is empty after trimming.
	ErrEmptyText = fmt.Errorf("%w: text is required", ErrValidation)
	// ErrInvalidCursor is returned when a page cursor does not name a message
	// of the requested history.
	ErrInvalidCursor = fmt.Errorf("%w: unknown cursor", ErrValidation)

	// ErrNotFound is returned when a referenced message does not exist.
	ErrNotFound = errors.New("message not found")
	// ErrForbidden is returned when the actor may not mutate the message.
	ErrForbidden = errors.New("not allowed")
	// ErrUnavailable is returned when the backend is known to be down.
	ErrUnavailable = errors.New("message store unavailable")
)

// Message represents a persisted direct message.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Text       string
	Read       bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Counterpart returns the other participant of the message as seen by userID.
func (m *Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Page limits a history query. A zero Limit means no limit.
type Page struct {
	Limit int
	// Before is a message id; only strictly older messages are returned.
	Before string
}

// MessageStore handles message persistence.
type MessageStore interface {
	// Append validates and persists a new message, returning the stored record.
	Append(ctx context.Context, senderID, receiverID, text string) (*Message, error)

	// History returns messages exchanged between two users in either direction,
	// oldest first.
	History(ctx context.Context, userA, userB string, page Page) ([]*Message, error)

	// AllForUser returns every message the user sent or received, newest first.
	AllForUser(ctx context.Context, userID string) ([]*Message, error)

	// DeleteByID removes a message. Only its sender may delete it.
	DeleteByID(ctx context.Context, messageID, requesterID string) error

	// MarkRead flags every message from counterpartID to readerID as read and
	// returns how many changed.
	MarkRead(ctx context.Context, readerID, counterpartID string) (int64, error)

	// Close releases the underlying resources.
	Close() error
}

// ValidateNew checks the fields of a message about to be appended and
// returns the trimmed text.
func ValidateNew(senderID, receiverID, text string) (string, error) {
	if strings.TrimSpace(senderID) == "" {
		return "", ErrMissingSender
	}
	if strings.TrimSpace(receiverID) == "" {
		return "", ErrMissingReceiver
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}
	return trimmed, nil
}

// IsDomainError reports whether err is an expected outcome rather than a
// backend failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden)
}
