package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/wiredm-server/internal/auth"
	"github.com/vovakirdan/wiredm-server/internal/service/messages"
	"github.com/vovakirdan/wiredm-server/internal/store"
	"github.com/vovakirdan/wiredm-server/internal/store/memory"
)

// testVerifier accepts "token-<user>" and rejects everything else.
var testVerifier = auth.VerifierFunc(func(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", auth.ErrMissingCredential
	}
	user, ok := strings.CutPrefix(credential, "token-")
	if !ok || user == "" {
		return "", auth.ErrInvalidCredential
	}
	return user, nil
})

func newTestHub(t *testing.T, st store.MessageStore) *Hub {
	t.Helper()
	if st == nil {
		st = memory.New()
	}
	return NewHub(testVerifier, NewRegistry(), messages.New(st), 8, nil)
}

func mustConnect(t *testing.T, hub *Hub, user string) *Session {
	t.Helper()

	s, err := hub.Connect(context.Background(), "token-"+user)
	if err != nil {
		t.Fatalf("connect %s: %v", user, err)
	}
	t.Cleanup(s.Close)

	mustEvent(t, s.Client(), EventReady)
	return s
}

func mustEvent(t *testing.T, c *Client, kind EventKind) *Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("expected event kind %v not received", kind)
			return nil
		}
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
