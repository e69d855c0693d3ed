package core

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm-server/internal/auth"
	"github.com/vovakirdan/wiredm-server/internal/metrics"
	"github.com/vovakirdan/wiredm-server/internal/store"
)

// MessageSender persists a direct message.
type MessageSender interface {
	Send(ctx context.Context, senderID, receiverID, text string) (*store.Message, error)
}

// Hub authenticates connections, binds them to users and fans messages out.
type Hub struct {
	verifier   auth.Verifier
	registry   *Registry
	messages   MessageSender
	sendBuffer int
	log        *zerolog.Logger
}

// NewHub creates a new chat hub instance. A nil logger disables logging.
func NewHub(verifier auth.Verifier, registry *Registry, messages MessageSender, sendBuffer int, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Hub{
		verifier:   verifier,
		registry:   registry,
		messages:   messages,
		sendBuffer: sendBuffer,
		log:        logger,
	}
}

// Registry returns the registry the hub binds connections into.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect verifies credential and binds a new connection to the resolved
// user. On failure nothing is bound and a *CoreError is returned.
func (h *Hub) Connect(ctx context.Context, credential string) (*Session, error) {
	userID, err := h.verifier.Verify(ctx, credential)
	if err != nil {
		code := ErrCodeInvalidCredential
		if errors.Is(err, auth.ErrMissingCredential) {
			code = ErrCodeUnauthorized
		}
		h.log.Debug().Err(err).Str("code", code).Msg("handshake rejected")
		return nil, coreError(code, code)
	}

	client := NewClient(uuid.NewString(), userID, h.sendBuffer)
	h.registry.Bind(userID, client)
	metrics.WSConnectionsActive.Inc()

	client.Deliver(&Event{
		Kind:         EventReady,
		UserID:       userID,
		ConnectionID: client.ID,
	})

	h.log.Info().
		Str("user_id", userID).
		Str("conn_id", client.ID).
		Msg("connection bound")

	return &Session{hub: h, client: client}, nil
}

// Publish delivers msg to every live connection of its receiver and its
// sender. It returns the number of connections that accepted the event.
func (h *Hub) Publish(msg *store.Message) int {
	targets := h.registry.ConnectionsFor(msg.ReceiverID)
	if msg.SenderID != msg.ReceiverID {
		targets = append(targets, h.registry.ConnectionsFor(msg.SenderID)...)
	}

	ev := &Event{Kind: EventNewMessage, Message: msg}
	delivered := 0
	for _, c := range targets {
		if c.Deliver(ev) {
			delivered++
			metrics.FanoutDeliveries.WithLabelValues("delivered").Inc()
			continue
		}
		metrics.FanoutDeliveries.WithLabelValues("dropped").Inc()
		h.log.Warn().
			Str("user_id", c.UserID).
			Str("conn_id", c.ID).
			Str("message_id", msg.ID).
			Msg("dropped event for slow or closed connection")
	}
	return delivered
}
