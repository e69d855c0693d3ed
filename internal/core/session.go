package core

import (
	"context"
	"errors"
	"sync"

	"github.com/vovakirdan/wiredm-server/internal/metrics"
	"github.com/vovakirdan/wiredm-server/internal/store"
	"github.com/vovakirdan/wiredm-server/internal/validation"
)

// Session is a bound connection. Commands must be handled sequentially.
type Session struct {
	hub       *Hub
	client    *Client
	closeOnce sync.Once
}

// Client returns the connection's event sink.
func (s *Session) Client() *Client {
	return s.client
}

// UserID returns the authenticated user.
func (s *Session) UserID() string {
	return s.client.UserID
}

// Handle executes cmd on behalf of the session's user. Failures are reported
// to the originating connection as an error event and also returned.
func (s *Session) Handle(ctx context.Context, cmd *Command) error {
	if s.client.Closed() {
		return ErrSessionClosed
	}

	switch cmd.Kind {
	case CommandSendMessage:
		return s.sendMessage(ctx, cmd)
	default:
		return s.Reject(coreError(ErrCodeUnknownType, "unknown command"))
	}
}

func (s *Session) sendMessage(ctx context.Context, cmd *Command) error {
	if err := validation.Struct(cmd); err != nil {
		metrics.MessageSendFailures.WithLabelValues("realtime", ErrCodeBadRequest).Inc()
		return s.Reject(coreError(ErrCodeBadRequest, err.Error()))
	}

	// The write outlives the connection if the client goes away mid-send.
	msg, err := s.hub.messages.Send(context.WithoutCancel(ctx), s.client.UserID, cmd.ReceiverID, cmd.Text)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			metrics.MessageSendFailures.WithLabelValues("realtime", ErrCodeBadRequest).Inc()
			return s.Reject(coreError(ErrCodeBadRequest, err.Error()))
		}
		s.hub.log.Error().
			Err(err).
			Str("user_id", s.client.UserID).
			Str("conn_id", s.client.ID).
			Msg("failed to persist message")
		metrics.MessageSendFailures.WithLabelValues("realtime", ErrCodePersistenceFailure).Inc()
		return s.Reject(coreError(ErrCodePersistenceFailure, "failed to save message"))
	}

	metrics.MessagesSent.WithLabelValues("realtime").Inc()
	s.hub.Publish(msg)
	return nil
}

// Reject sends an error event to this connection only and returns it.
func (s *Session) Reject(cerr *CoreError) error {
	if !s.client.Deliver(&Event{Kind: EventError, Error: cerr}) {
		s.hub.log.Warn().
			Str("conn_id", s.client.ID).
			Str("code", cerr.Code).
			Msg("dropped error event")
	}
	return cerr
}

// Close unbinds the connection. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		remaining := s.hub.registry.Unbind(s.client.UserID, s.client)
		s.client.Close()
		metrics.WSConnectionsActive.Dec()

		s.hub.log.Info().
			Str("user_id", s.client.UserID).
			Str("conn_id", s.client.ID).
			Int("remaining", remaining).
			Msg("connection unbound")
	})
}
