package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/wiredm-server/internal/proto"
	"github.com/vovakirdan/wiredm-server/internal/store"
	"github.com/vovakirdan/wiredm-server/internal/store/memory"
)

func TestAPIRequiresAuthentication(t *testing.T) {
	env := startTestServer(t, nil, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/messages"},
		{http.MethodGet, "/api/messages/bob"},
		{http.MethodGet, "/api/messages/conversations/alice"},
		{http.MethodDelete, "/api/messages/some-id"},
		{http.MethodPatch, "/api/messages/bob/read"},
	}

	for _, tt := range tests {
		resp := env.do(t, tt.method, tt.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tt.method, tt.path, resp.StatusCode)
		}
		resp = env.do(t, tt.method, tt.path, "garbage", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: expected 401, got %d", tt.method, tt.path, resp.StatusCode)
		}
	}
}

func TestAPISendPersistsAndFansOut(t *testing.T) {
	env := startTestServer(t, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bob := env.dial(ctx, t, "bob")

	resp := env.do(t, http.MethodPost, "/api/messages", env.token(t, "alice"), map[string]string{
		"receiverId": "bob",
		"text":       "  via api ",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created proto.Message
	decodeBody(t, resp, &created)
	if created.SenderID != "alice" || created.ReceiverID != "bob" || created.Text != "via api" || created.Read {
		t.Fatalf("unexpected created message: %+v", created)
	}

	pushed := readNewMessage(ctx, t, bob)
	if pushed.ID != created.ID {
		t.Fatalf("pushed id %s, want %s", pushed.ID, created.ID)
	}
	expectSilence(t, bob)
}

func TestAPISendValidation(t *testing.T) {
	env := startTestServer(t, nil, nil)
	token := env.token(t, "alice")

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "missing receiver", body: map[string]string{"text": "hi"}, want: "receiverId is required"},
		{name: "blank text", body: map[string]string{"receiverId": "bob", "text": "   "}, want: "text is required"},
		{name: "not an object", body: []int{1}, want: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/messages", token, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var body ErrorResponse
			decodeBody(t, resp, &body)
			if body.Error != tt.want {
				t.Fatalf("error %q, want %q", body.Error, tt.want)
			}
		})
	}

	all, _ := env.store.AllForUser(context.Background(), "alice")
	if len(all) != 0 {
		t.Fatalf("invalid sends must not persist, got %d", len(all))
	}
}

func TestAPIHistoryIsSymmetricAndAscending(t *testing.T) {
	env := startTestServer(t, nil, nil)
	alice, bob := env.token(t, "alice"), env.token(t, "bob")

	for i, step := range []struct{ token, to, text string }{
		{alice, "bob", "one"},
		{bob, "alice", "two"},
		{alice, "bob", "three"},
		{alice, "carol", "elsewhere"},
	} {
		resp := env.do(t, http.MethodPost, "/api/messages", step.token, map[string]string{"receiverId": step.to, "text": step.text})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("send %d: expected 201, got %d", i, resp.StatusCode)
		}
	}

	var fromAlice, fromBob []proto.Message
	decodeBody(t, env.do(t, http.MethodGet, "/api/messages/bob", alice, nil), &fromAlice)
	decodeBody(t, env.do(t, http.MethodGet, "/api/messages/alice", bob, nil), &fromBob)

	if len(fromAlice) != 3 || len(fromBob) != 3 {
		t.Fatalf("expected 3 messages each side, got %d and %d", len(fromAlice), len(fromBob))
	}
	for i, want := range []string{"one", "two", "three"} {
		if fromAlice[i].Text != want || fromBob[i].ID != fromAlice[i].ID {
			t.Fatalf("index %d: got %q / %q", i, fromAlice[i].Text, fromBob[i].Text)
		}
	}
}

func TestAPIHistoryPagination(t *testing.T) {
	env := startTestServer(t, nil, nil)
	alice := env.token(t, "alice")

	for _, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		env.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"receiverId": "bob", "text": text})
	}

	resp := env.do(t, http.MethodGet, "/api/messages/bob?limit=2", alice, nil)
	var page []proto.Message
	decodeBody(t, resp, &page)
	if len(page) != 2 || page[0].Text != "m4" || page[1].Text != "m5" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	cursor := resp.Header.Get(HeaderNextCursor)
	if cursor != page[0].ID {
		t.Fatalf("cursor %q, want %q", cursor, page[0].ID)
	}

	resp = env.do(t, http.MethodGet, "/api/messages/bob?limit=2&before="+cursor, alice, nil)
	decodeBody(t, resp, &page)
	if len(page) != 2 || page[0].Text != "m2" || page[1].Text != "m3" {
		t.Fatalf("unexpected second page: %+v", page)
	}

	resp = env.do(t, http.MethodGet, "/api/messages/bob?limit=2&before="+page[0].ID, alice, nil)
	decodeBody(t, resp, &page)
	if len(page) != 1 || page[0].Text != "m1" {
		t.Fatalf("unexpected last page: %+v", page)
	}
	if resp.Header.Get(HeaderNextCursor) != "" {
		t.Fatalf("short page must not carry a cursor")
	}

	if resp := env.do(t, http.MethodGet, "/api/messages/bob?limit=abc", alice, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/messages/bob?before=nope", alice, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown cursor, got %d", resp.StatusCode)
	}
}

func TestAPIConversationsUsesCaller(t *testing.T) {
	env := startTestServer(t, nil, nil)
	alice, bob, carol := env.token(t, "alice"), env.token(t, "bob"), env.token(t, "carol")

	env.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"receiverId": "bob", "text": "hey bob"})
	env.do(t, http.MethodPost, "/api/messages", carol, map[string]string{"receiverId": "alice", "text": "hey alice"})
	env.do(t, http.MethodPost, "/api/messages", bob, map[string]string{"receiverId": "carol", "text": "not yours"})

	// The path names bob, but alice's conversations are returned.
	resp := env.do(t, http.MethodGet, "/api/messages/conversations/bob", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var convs []proto.Conversation
	decodeBody(t, resp, &convs)
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %+v", convs)
	}
	if convs[0].CounterpartID != "carol" || convs[0].LastMessageText != "hey alice" || convs[0].UnreadCount != 1 {
		t.Fatalf("unexpected first conversation: %+v", convs[0])
	}
	if convs[1].CounterpartID != "bob" || convs[1].LastSenderID != "alice" || convs[1].UnreadCount != 0 {
		t.Fatalf("unexpected second conversation: %+v", convs[1])
	}

	// Without a path user the caller's list is returned, not a history page.
	resp = env.do(t, http.MethodGet, "/api/messages/conversations", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var bare []proto.Conversation
	decodeBody(t, resp, &bare)
	if len(bare) != 2 || bare[0].CounterpartID != "carol" || bare[1].CounterpartID != "bob" {
		t.Fatalf("unexpected conversations without path user: %+v", bare)
	}
}

func TestAPIDelete(t *testing.T) {
	env := startTestServer(t, nil, nil)
	alice, bob := env.token(t, "alice"), env.token(t, "bob")

	var created proto.Message
	decodeBody(t, env.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"receiverId": "bob", "text": "oops"}), &created)

	if resp := env.do(t, http.MethodDelete, "/api/messages/does-not-exist", alice, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodDelete, "/api/messages/"+created.ID, bob, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for receiver, got %d", resp.StatusCode)
	}

	resp := env.do(t, http.MethodDelete, "/api/messages/"+created.ID, alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body DeleteResponse
	decodeBody(t, resp, &body)
	if !body.Success {
		t.Fatalf("expected success true")
	}

	var history []proto.Message
	decodeBody(t, env.do(t, http.MethodGet, "/api/messages/bob", alice, nil), &history)
	if len(history) != 0 {
		t.Fatalf("expected empty history after delete, got %+v", history)
	}
	if resp := env.do(t, http.MethodDelete, "/api/messages/"+created.ID, alice, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestAPIMarkRead(t *testing.T) {
	env := startTestServer(t, nil, nil)
	alice, bob := env.token(t, "alice"), env.token(t, "bob")

	env.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"receiverId": "bob", "text": "1"})
	env.do(t, http.MethodPost, "/api/messages", alice, map[string]string{"receiverId": "bob", "text": "2"})
	env.do(t, http.MethodPost, "/api/messages", bob, map[string]string{"receiverId": "alice", "text": "3"})

	resp := env.do(t, http.MethodPatch, "/api/messages/alice/read", bob, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body MarkReadResponse
	decodeBody(t, resp, &body)
	if body.Updated != 2 {
		t.Fatalf("expected 2 updated, got %d", body.Updated)
	}

	var history []proto.Message
	decodeBody(t, env.do(t, http.MethodGet, "/api/messages/alice", bob, nil), &history)
	for _, m := range history {
		wantRead := m.SenderID == "alice"
		if m.Read != wantRead {
			t.Fatalf("message %q read=%v, want %v", m.Text, m.Read, wantRead)
		}
	}
}

type brokenStore struct {
	store.MessageStore
	err error
}

func (b brokenStore) AllForUser(context.Context, string) ([]*store.Message, error) {
	return nil, b.err
}

func TestAPIPersistenceFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "backend error", err: errors.New("database is locked"), want: http.StatusInternalServerError},
		{name: "breaker open", err: store.ErrUnavailable, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := startTestServer(t, brokenStore{MessageStore: memory.New(), err: tt.err}, nil)

			resp := env.do(t, http.MethodGet, "/api/messages/conversations/alice", env.token(t, "alice"), nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			var body ErrorResponse
			decodeBody(t, resp, &body)
			if strings.Contains(body.Error, "locked") {
				t.Fatalf("backend details leaked: %q", body.Error)
			}
		})
	}
}
