package http

import (
	"github.com/goccy/go-json"

	"github.com/vovakirdan/wiredm-server/internal/core"
	"github.com/vovakirdan/wiredm-server/internal/proto"
	"github.com/vovakirdan/wiredm-server/internal/service/messages"
	"github.com/vovakirdan/wiredm-server/internal/store"
)

// decodeInbound parses a raw frame into an envelope.
func decodeInbound(data []byte) (proto.Inbound, *core.CoreError) {
	var inbound proto.Inbound
	if err := json.Unmarshal(data, &inbound); err != nil {
		return inbound, core.NewError(core.ErrCodeBadRequest, "malformed frame")
	}
	return inbound, nil
}

// credentialFromHello extracts the token of a hello frame. Any other frame
// yields no credential.
func credentialFromHello(inbound proto.Inbound) string {
	if inbound.Type != proto.InboundTypeHello {
		return ""
	}
	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return ""
	}
	return hello.Token
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *core.CoreError) {
	switch inbound.Type {
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if len(inbound.Data) > 0 {
			if err := json.Unmarshal(inbound.Data, &msg); err != nil {
				return nil, core.NewError(core.ErrCodeBadRequest, "malformed sendMessage payload")
			}
		}
		return &core.Command{
			Kind:       core.CommandSendMessage,
			ReceiverID: msg.ReceiverID,
			Text:       msg.Text,
		}, nil
	case proto.InboundTypeHello:
		return nil, core.NewError(core.ErrCodeUnknownType, "already authenticated")
	default:
		return nil, core.NewError(core.ErrCodeUnknownType, "unknown message type")
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventReady:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReady,
			Data: proto.EventReadyData{
				UserID:       event.UserID,
				ConnectionID: event.ConnectionID,
			},
		}
	case core.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  toProtoMessage(event.Message),
		}
	case core.EventError:
		return outboundError(event.Error)
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func outboundError(cerr *core.CoreError) proto.Outbound {
	if cerr == nil {
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: cerr.Code, Msg: cerr.Message},
	}
}

func toProtoMessage(m *store.Message) proto.Message {
	return proto.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toProtoConversation(c messages.Conversation) proto.Conversation {
	return proto.Conversation{
		CounterpartID:   c.CounterpartID,
		LastMessageID:   c.LastMessageID,
		LastMessageText: c.LastMessageText,
		LastMessageAt:   c.LastMessageAt,
		LastSenderID:    c.LastSenderID,
		UnreadCount:     c.UnreadCount,
	}
}
