package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm-server/internal/auth"
	"github.com/vovakirdan/wiredm-server/internal/config"
	"github.com/vovakirdan/wiredm-server/internal/core"
	"github.com/vovakirdan/wiredm-server/internal/proto"
	"github.com/vovakirdan/wiredm-server/internal/service/messages"
	"github.com/vovakirdan/wiredm-server/internal/store"
	"github.com/vovakirdan/wiredm-server/internal/store/memory"
)

const testSecret = "test-secret"

type testEnv struct {
	ts    *httptest.Server
	hub   *core.Hub
	store store.MessageStore
	jwt   *auth.JWTConfig
	cfg   config.Config
}

// rawOutbound mirrors proto.Outbound with undecoded data.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// startTestServer runs the full router over an in-memory store.
func startTestServer(t *testing.T, st store.MessageStore, mutate func(*config.Config)) *testEnv {
	t.Helper()

	if st == nil {
		st = memory.New()
	}

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWT.Secret = testSecret
	cfg.JWT.Issuer = "test"
	cfg.JWT.Audience = "test"
	cfg.HandshakeTimeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      time.Hour,
	}
	verifier := auth.NewJWTVerifier(jwtCfg)

	disabledLogger := zerolog.New(nil)

	svc := messages.New(st)
	hub := core.NewHub(verifier, core.NewRegistry(), svc, cfg.WS.SendBuffer, &disabledLogger)

	env := &testEnv{hub: hub, store: st, jwt: jwtCfg, cfg: cfg}
	server := NewServer(hub, svc, verifier, &env.cfg, &disabledLogger)

	env.ts = httptest.NewServer(server.Handler)
	t.Cleanup(env.ts.Close)

	return env
}

func (e *testEnv) token(t *testing.T, user string) string {
	t.Helper()

	token, err := auth.GenerateToken(e.jwt, user, "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

// dial opens an authenticated socket and consumes the ready event.
func (e *testEnv) dial(ctx context.Context, t *testing.T, user string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL(), &websocket.DialOptions{
		HTTPHeader: stdhttp.Header{"Authorization": []string{"Bearer " + e.token(t, user)}},
	})
	if err != nil {
		t.Fatalf("dial %s: %v", user, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventReady {
		t.Fatalf("expected ready event, got %+v", out)
	}
	return conn
}

// do performs an API request with an optional bearer token and JSON body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *stdhttp.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *stdhttp.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func readOutbound(ctx context.Context, t *testing.T, conn *websocket.Conn) rawOutbound {
	t.Helper()

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func readNewMessage(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.Message {
	t.Helper()

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventNewMessage {
		t.Fatalf("expected newMessage event, got %+v", out)
	}
	var msg proto.Message
	if err := json.Unmarshal(out.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

func sendMessage(ctx context.Context, t *testing.T, conn *websocket.Conn, receiverID, text string) {
	t.Helper()

	payload, _ := json.Marshal(proto.SendMessageData{ReceiverID: receiverID, Text: text})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMessage, Data: payload}); err != nil {
		t.Fatalf("send message: %v", err)
	}
}

// expectSilence asserts no frame arrives on conn for a short while. The read
// timeout closes conn, so it must be the last use of it.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err == nil {
		t.Fatalf("unexpected frame: %+v", out)
	}
}
