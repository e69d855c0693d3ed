// Package breaker guards a store.MessageStore with a circuit breaker so an
// unavailable backend fails fast with store.ErrUnavailable.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vovakirdan/wiredm-server/internal/metrics"
	"github.com/vovakirdan/wiredm-server/internal/store"
)

// Settings configures the breaker.
type Settings struct {
	Name string
	// FailureThreshold is the number of consecutive backend failures that opens the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
}

// Store wraps another store.
type Store struct {
	next store.MessageStore
	cb   *gobreaker.CircuitBreaker[any]
}

// New wraps next with a circuit breaker. Domain errors (validation, not found,
// forbidden) count as successes; only backend failures trip the circuit.
func New(next store.MessageStore, s Settings, logger *zerolog.Logger) *Store {
	if s.Name == "" {
		s.Name = "message-store"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || store.IsDomainError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.StoreBreakerState.Set(float64(to))
			if logger != nil {
				logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("store circuit breaker state changed")
			}
		},
	}

	return &Store{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the current breaker state name.
func (s *Store) State() string {
	return s.cb.State().String()
}

func (s *Store) execute(fn func() (any, error)) (any, error) {
	result, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return result, err
}

// Append implements store.MessageStore.
func (s *Store) Append(ctx context.Context, senderID, receiverID, text string) (*store.Message, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Append(ctx, senderID, receiverID, text)
	})
	if err != nil {
		return nil, err
	}
	return result.(*store.Message), nil
}

// History implements store.MessageStore.
func (s *Store) History(ctx context.Context, userA, userB string, page store.Page) ([]*store.Message, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.History(ctx, userA, userB, page)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*store.Message), nil
}

// AllForUser implements store.MessageStore.
func (s *Store) AllForUser(ctx context.Context, userID string) ([]*store.Message, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.AllForUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*store.Message), nil
}

// DeleteByID implements store.MessageStore.
func (s *Store) DeleteByID(ctx context.Context, messageID, requesterID string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.DeleteByID(ctx, messageID, requesterID)
	})
	return err
}

// MarkRead implements store.MessageStore.
func (s *Store) MarkRead(ctx context.Context, readerID, counterpartID string) (int64, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.MarkRead(ctx, readerID, counterpartID)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// Close implements store.MessageStore.
func (s *Store) Close() error {
	return s.next.Close()
}
