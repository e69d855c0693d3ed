package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm-server/internal/auth"
	"github.com/vovakirdan/wiredm-server/internal/config"
	"github.com/vovakirdan/wiredm-server/internal/core"
	"github.com/vovakirdan/wiredm-server/internal/metrics"
)

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
type WSHandler struct {
	hub              *core.Hub
	handshakeTimeout time.Duration
	maxMessageBytes  int64
	ratePerSecond    float64
	rateBurst        int
	log              *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:              hub,
		handshakeTimeout: cfg.HandshakeTimeout,
		maxMessageBytes:  cfg.WS.MaxMessageBytes,
		ratePerSecond:    cfg.WS.RatePerSecond,
		rateBurst:        cfg.WS.RateBurst,
		log:              logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	session, err := h.handshake(ctx, r, conn)
	if err != nil {
		var cerr *core.CoreError
		if errors.As(err, &cerr) {
			metrics.WSHandshakes.WithLabelValues(cerr.Code).Inc()
			if writeErr := wsjson.Write(ctx, conn, outboundError(cerr)); writeErr != nil {
				h.log.Debug().Err(writeErr).Msg("write handshake error")
			}
			conn.Close(websocket.StatusPolicyViolation, cerr.Code)
			return
		}
		outcome := handshakeOutcome(err)
		metrics.WSHandshakes.WithLabelValues(outcome).Inc()
		h.log.Debug().Err(err).Str("outcome", outcome).Msg("handshake aborted")
		return
	}
	metrics.WSHandshakes.WithLabelValues("bound").Inc()
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session.Client())
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("conn_id", session.Client().ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshakeOutcome labels a handshake that ended without a credential decision.
func handshakeOutcome(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "aborted"
}

// handshake resolves the credential from the Authorization header, the token
// query parameter or a hello frame, in that order, and binds the connection.
func (h *WSHandler) handshake(ctx context.Context, r *stdhttp.Request, conn *websocket.Conn) (*core.Session, error) {
	credential := auth.BearerToken(r.Header.Get("Authorization"))
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}

	if credential == "" {
		hctx := ctx
		if h.handshakeTimeout > 0 {
			var cancel context.CancelFunc
			hctx, cancel = context.WithTimeout(ctx, h.handshakeTimeout)
			defer cancel()
		}

		_, data, err := conn.Read(hctx)
		if err != nil {
			return nil, err
		}
		if inbound, cerr := decodeInbound(data); cerr == nil {
			credential = credentialFromHello(inbound)
		}
	}

	return h.hub.Connect(ctx, credential)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	limiter := newRateLimiter(h.ratePerSecond, h.rateBurst)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("conn_id", session.Client().ID).Msg("read ws inbound")
			return err
		}

		inbound, cerr := decodeInbound(data)
		var cmd *core.Command
		if cerr == nil {
			cmd, cerr = inboundToCommand(inbound)
		}
		if cerr != nil {
			_ = session.Reject(cerr)
			continue
		}

		if !limiter.allow() {
			metrics.MessageSendFailures.WithLabelValues("realtime", core.ErrCodeRateLimited).Inc()
			_ = session.Reject(core.NewError(core.ErrCodeRateLimited, "too many messages"))
			continue
		}

		if err := session.Handle(ctx, cmd); err != nil {
			if errors.Is(err, core.ErrSessionClosed) {
				return err
			}
			h.log.Debug().Err(err).Str("conn_id", session.Client().ID).Msg("command failed")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
