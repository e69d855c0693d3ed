package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeHello       = "hello"
	InboundTypeSendMessage = "sendMessage"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventReady      = "ready"
	EventNewMessage = "newMessage"
)

// HelloData carries the credential when it was not presented on the upgrade request.
type HelloData struct {
	Token string `json:"token"`
}

// SendMessageData is a direct message from the client.
type SendMessageData struct {
	ReceiverID string `json:"receiverId" validate:"notblank"`
	Text       string `json:"text" validate:"notblank"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventReadyData confirms the connection is bound to a user.
type EventReadyData struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// Message is the wire form of a persisted direct message.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Conversation is the wire form of a conversation summary.
type Conversation struct {
	CounterpartID   string    `json:"counterpartId"`
	LastMessageID   string    `json:"lastMessageId"`
	LastMessageText string    `json:"lastMessageText"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	LastSenderID    string    `json:"lastSenderId"`
	UnreadCount     int       `json:"unreadCount"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
