package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wiredm-server/internal/store"
)

// ErrMissingCounterpart is returned when a query names no other user.
var ErrMissingCounterpart = fmt.Errorf("%w: other user id is required", store.ErrValidation)

// MaxPageLimit caps a single history page.
const MaxPageLimit = 200

// Service provides direct-message business logic over a store.
type Service struct {
	store store.MessageStore
}

// New creates a new message service.
func New(st store.MessageStore) *Service {
	return &Service{
		store: st,
	}
}

// Send validates and persists a message from senderID to receiverID.
func (s *Service) Send(ctx context.Context, senderID, receiverID, text string) (*store.Message, error) {
	// Reject before touching the store.
	if _, err := store.ValidateNew(senderID, receiverID, text); err != nil {
		return nil, err
	}

	msg, err := s.store.Append(ctx, senderID, receiverID, text)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// History returns the conversation between selfID and otherID, oldest first.
func (s *Service) History(ctx context.Context, selfID, otherID string, page store.Page) ([]*store.Message, error) {
	if strings.TrimSpace(otherID) == "" {
		return nil, ErrMissingCounterpart
	}
	if page.Limit < 0 {
		page.Limit = 0
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}

	msgs, err := s.store.History(ctx, selfID, otherID, page)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

// Conversations lists the caller's conversations, most recent first.
func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	msgs, err := s.store.AllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return Aggregate(userID, msgs), nil
}

// Delete removes a message on behalf of requesterID.
func (s *Service) Delete(ctx context.Context, messageID, requesterID string) error {
	if strings.TrimSpace(messageID) == "" {
		return store.ErrNotFound
	}
	if err := s.store.DeleteByID(ctx, messageID, requesterID); err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrForbidden) {
			return err
		}
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// MarkRead acknowledges every message counterpartID sent to readerID.
func (s *Service) MarkRead(ctx context.Context, readerID, counterpartID string) (int64, error) {
	if strings.TrimSpace(counterpartID) == "" {
		return 0, ErrMissingCounterpart
	}
	updated, err := s.store.MarkRead(ctx, readerID, counterpartID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return updated, nil
}
