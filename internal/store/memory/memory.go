// Package memory implements store.MessageStore in process memory.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/wiredm-server/internal/store"
)

// Store keeps messages in insertion order, which is also creation order.
type Store struct {
	mu       sync.RWMutex
	messages []*store.Message
	now      func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock creates a store that stamps messages with the given clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Append implements store.MessageStore.
func (s *Store) Append(_ context.Context, senderID, receiverID, text string) (*store.Message, error) {
	trimmed, err := store.ValidateNew(senderID, receiverID, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	msg := &store.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       trimmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.messages = append(s.messages, msg)

	out := *msg
	return &out, nil
}

// History implements store.MessageStore.
func (s *Store) History(_ context.Context, userA, userB string, page store.Page) ([]*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pair []*store.Message
	for _, m := range s.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			pair = append(pair, m)
		}
	}

	if page.Before != "" {
		idx := slices.IndexFunc(pair, func(m *store.Message) bool { return m.ID == page.Before })
		if idx < 0 {
			return nil, store.ErrInvalidCursor
		}
		pair = pair[:idx]
	}
	if page.Limit > 0 && len(pair) > page.Limit {
		pair = pair[len(pair)-page.Limit:]
	}

	return cloneAll(pair), nil
}

// AllForUser implements store.MessageStore.
func (s *Store) AllForUser(_ context.Context, userID string) ([]*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.SenderID == userID || m.ReceiverID == userID {
			out := *m
			result = append(result, &out)
		}
	}
	return result, nil
}

// DeleteByID implements store.MessageStore.
func (s *Store) DeleteByID(_ context.Context, messageID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.messages, func(m *store.Message) bool { return m.ID == messageID })
	if idx < 0 {
		return store.ErrNotFound
	}
	if s.messages[idx].SenderID != requesterID {
		return store.ErrForbidden
	}
	s.messages = slices.Delete(s.messages, idx, idx+1)
	return nil
}

// MarkRead implements store.MessageStore.
func (s *Store) MarkRead(_ context.Context, readerID, counterpartID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var updated int64
	for _, m := range s.messages {
		if m.SenderID == counterpartID && m.ReceiverID == readerID && !m.Read {
			m.Read = true
			m.UpdatedAt = now
			updated++
		}
	}
	return updated, nil
}

// Close implements store.MessageStore.
func (s *Store) Close() error {
	return nil
}

func cloneAll(in []*store.Message) []*store.Message {
	out := make([]*store.Message, 0, len(in))
	for _, m := range in {
		c := *m
		out = append(out, &c)
	}
	return out
}
