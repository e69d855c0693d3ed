package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wiredm-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// rawOutbound keeps event data undecoded until the event is known.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "bearer token (mint one with `server token --sub <id>`)")
	to := flag.String("to", "", "receiver user id (defaults to yourself)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(v any) error {
		if err := wsjson.Write(ctx, conn, v); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	helloPayload, err := json.Marshal(proto.HelloData{Token: *token})
	if err != nil {
		return fmt.Errorf("marshal hello: %w", err)
	}
	if err := mustSend(proto.Inbound{Type: proto.InboundTypeHello, Data: helloPayload}); err != nil {
		return err
	}

	for {
		var outbound rawOutbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}

		switch outbound.Event {
		case proto.EventReady:
			var ready proto.EventReadyData
			if err := json.Unmarshal(outbound.Data, &ready); err != nil {
				return fmt.Errorf("unmarshal ready: %w", err)
			}
			fmt.Printf("Ready: user=%s conn=%s\n", ready.UserID, ready.ConnectionID)

			receiver := *to
			if receiver == "" {
				receiver = ready.UserID
			}
			msgPayload, err := json.Marshal(proto.SendMessageData{ReceiverID: receiver, Text: *text})
			if err != nil {
				return fmt.Errorf("marshal message: %w", err)
			}
			if err := mustSend(proto.Inbound{Type: proto.InboundTypeSendMessage, Data: msgPayload}); err != nil {
				return err
			}
		case proto.EventNewMessage:
			var msg proto.Message
			if err := json.Unmarshal(outbound.Data, &msg); err != nil {
				fmt.Printf("Raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("NewMessage: id=%s from=%s to=%s text=%q at=%s\n",
				msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.CreatedAt.Format(time.RFC3339))
			return nil
		default:
			// keep looping for the echo
		}
	}
}
