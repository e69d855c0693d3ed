package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm-server/internal/core"
	"github.com/vovakirdan/wiredm-server/internal/metrics"
	"github.com/vovakirdan/wiredm-server/internal/proto"
	"github.com/vovakirdan/wiredm-server/internal/service/messages"
	"github.com/vovakirdan/wiredm-server/internal/store"
	"github.com/vovakirdan/wiredm-server/internal/validation"
)

// HeaderNextCursor carries the "before" value for the next history page.
const HeaderNextCursor = "X-Next-Cursor"

// MessageHandlers provides HTTP handlers for direct message endpoints.
type MessageHandlers struct {
	service *messages.Service
	hub     *core.Hub
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *messages.Service, hub *core.Hub, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: svc,
		hub:     hub,
		log:     logger,
	}
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"notblank"`
	Text       string `json:"text" binding:"notblank"`
}

// DeleteResponse is returned after a successful delete.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// MarkReadResponse reports how many messages were acknowledged.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// Send handles sending a message without a realtime connection.
// POST /api/messages
func (h *MessageHandlers) Send(c *gin.Context) {
	uid, ok := userIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		metrics.MessageSendFailures.WithLabelValues("api", core.ErrCodeBadRequest).Inc()
		msg := "invalid request body"
		var verr *validation.Error
		if errors.As(validation.Translate(err), &verr) {
			msg = verr.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), uid, req.ReceiverID, req.Text)
	if err != nil {
		reason := core.ErrCodePersistenceFailure
		if errors.Is(err, store.ErrValidation) {
			reason = core.ErrCodeBadRequest
		}
		metrics.MessageSendFailures.WithLabelValues("api", reason).Inc()
		h.writeError(c, err, "failed to send message")
		return
	}

	metrics.MessagesSent.WithLabelValues("api").Inc()
	h.hub.Publish(msg)

	h.log.Debug().Str("user_id", uid).Str("message_id", msg.ID).Msg("message sent via api")
	c.JSON(http.StatusCreated, toProtoMessage(msg))
}

// History handles loading a conversation.
// GET /api/messages/:otherUserId?limit=&before=
func (h *MessageHandlers) History(c *gin.Context) {
	uid, ok := userIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	page := store.Page{Before: c.Query("before")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		page.Limit = min(limit, messages.MaxPageLimit)
	}

	msgs, err := h.service.History(c.Request.Context(), uid, c.Param("otherUserId"), page)
	if err != nil {
		h.writeError(c, err, "failed to load messages")
		return
	}

	if page.Limit > 0 && len(msgs) == page.Limit {
		c.Header(HeaderNextCursor, msgs[0].ID)
	}

	response := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, toProtoMessage(m))
	}
	c.JSON(http.StatusOK, response)
}

// Conversations handles listing the caller's conversations.
// GET /api/messages/conversations[/:userId]
//
// The path parameter is accepted for client compatibility; the caller's own
// identity is always used.
func (h *MessageHandlers) Conversations(c *gin.Context) {
	uid, ok := userIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if param := c.Param("userId"); param != "" && param != uid {
		h.log.Debug().Str("user_id", uid).Str("param", param).Msg("conversations path user differs from caller")
	}

	convs, err := h.service.Conversations(c.Request.Context(), uid)
	if err != nil {
		h.writeError(c, err, "failed to load conversations")
		return
	}

	response := make([]proto.Conversation, 0, len(convs))
	for _, conv := range convs {
		response = append(response, toProtoConversation(conv))
	}
	c.JSON(http.StatusOK, response)
}

// Delete handles deleting one of the caller's messages.
// DELETE /api/messages/:messageId
func (h *MessageHandlers) Delete(c *gin.Context) {
	uid, ok := userIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	messageID := c.Param("messageId")
	if err := h.service.Delete(c.Request.Context(), messageID, uid); err != nil {
		h.writeError(c, err, "failed to delete message")
		return
	}

	h.log.Info().Str("user_id", uid).Str("message_id", messageID).Msg("message deleted")
	c.JSON(http.StatusOK, DeleteResponse{Success: true})
}

// MarkRead handles acknowledging messages from another user.
// PATCH /api/messages/:otherUserId/read
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	uid, ok := userIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	updated, err := h.service.MarkRead(c.Request.Context(), uid, c.Param("otherUserId"))
	if err != nil {
		h.writeError(c, err, "failed to mark messages read")
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{Updated: updated})
}

// writeError maps service errors to HTTP status codes.
func (h *MessageHandlers) writeError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not allowed to delete this message"})
	case errors.Is(err, store.ErrUnavailable):
		h.log.Warn().Err(err).Msg(logMsg)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable"})
	default:
		h.log.Error().Err(err).Msg(logMsg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
