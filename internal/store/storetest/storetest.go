// Package storetest holds the behavioural suite every store.MessageStore
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/vovakirdan/wiredm-server/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.MessageStore

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("AppendValidates", func(t *testing.T) { testAppendValidates(t, newStore(t)) })
	t.Run("AppendThenHistory", func(t *testing.T) { testAppendThenHistory(t, newStore(t)) })
	t.Run("HistorySymmetric", func(t *testing.T) { testHistorySymmetric(t, newStore(t)) })
	t.Run("HistoryPagination", func(t *testing.T) { testHistoryPagination(t, newStore(t)) })
	t.Run("AllForUserNewestFirst", func(t *testing.T) { testAllForUser(t, newStore(t)) })
	t.Run("DeleteByID", func(t *testing.T) { testDeleteByID(t, newStore(t)) })
	t.Run("MarkRead", func(t *testing.T) { testMarkRead(t, newStore(t)) })
}

func mustAppend(t *testing.T, st store.MessageStore, from, to, text string) *store.Message {
	t.Helper()
	msg, err := st.Append(context.Background(), from, to, text)
	if err != nil {
		t.Fatalf("append %s->%s: %v", from, to, err)
	}
	return msg
}

func texts(msgs []*store.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func testAppendValidates(t *testing.T, st store.MessageStore) {
	ctx := context.Background()

	tests := []struct {
		name     string
		sender   string
		receiver string
		text     string
		want     error
	}{
		{name: "empty text", sender: "u1", receiver: "u2", text: "", want: store.ErrEmptyText},
		{name: "blank text", sender: "u1", receiver: "u2", text: " \n\t ", want: store.ErrEmptyText},
		{name: "missing receiver", sender: "u1", receiver: "", text: "hi", want: store.ErrMissingReceiver},
		{name: "missing sender", sender: "", receiver: "u2", text: "hi", want: store.ErrMissingSender},
	}
	for _, tt := range tests {
		_, err := st.Append(ctx, tt.sender, tt.receiver, tt.text)
		if !errors.Is(err, tt.want) || !errors.Is(err, store.ErrValidation) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}

	all, err := st.AllForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("all for user: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("invalid appends must not write, found %d messages", len(all))
	}
}

func testAppendThenHistory(t *testing.T, st store.MessageStore) {
	ctx := context.Background()

	mustAppend(t, st, "u1", "u2", "first")
	mustAppend(t, st, "u2", "u1", "second")
	created := mustAppend(t, st, "u1", "u2", "  hi  ")

	if created.ID == "" || created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected populated record, got %+v", created)
	}
	if created.Text != "hi" {
		t.Fatalf("expected trimmed text, got %q", created.Text)
	}
	if created.Read {
		t.Fatalf("new message must be unread")
	}

	history, err := st.History(ctx, "u1", "u2", store.Page{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !slices.Equal(texts(history), []string{"first", "second", "hi"}) {
		t.Fatalf("unexpected history order: %v", texts(history))
	}

	last := history[len(history)-1]
	if last.ID != created.ID || last.SenderID != "u1" || last.ReceiverID != "u2" ||
		!last.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("history entry %+v does not match created %+v", last, created)
	}

	count := 0
	for _, m := range history {
		if m.ID == created.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one entry for the created message, got %d", count)
	}
}

func testHistorySymmetric(t *testing.T, st store.MessageStore) {
	ctx := context.Background()

	mustAppend(t, st, "a", "b", "1")
	mustAppend(t, st, "b", "a", "2")
	mustAppend(t, st, "a", "c", "other pair")
	mustAppend(t, st, "a", "b", "3")

	ab, err := st.History(ctx, "a", "b", store.Page{})
	if err != nil {
		t.Fatalf("history a,b: %v", err)
	}
	ba, err := st.History(ctx, "b", "a", store.Page{})
	if err != nil {
		t.Fatalf("history b,a: %v", err)
	}
	if !slices.Equal(texts(ab), texts(ba)) || !slices.Equal(texts(ab), []string{"1", "2", "3"}) {
		t.Fatalf("history not symmetric: %v vs %v", texts(ab), texts(ba))
	}
}

func testHistoryPagination(t *testing.T, st store.MessageStore) {
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		ids = append(ids, mustAppend(t, st, "a", "b", text).ID)
	}
	mustAppend(t, st, "a", "z", "unrelated")

	latest, err := st.History(ctx, "b", "a", store.Page{Limit: 2})
	if err != nil {
		t.Fatalf("history page: %v", err)
	}
	if !slices.Equal(texts(latest), []string{"m4", "m5"}) {
		t.Fatalf("expected newest page ascending, got %v", texts(latest))
	}

	older, err := st.History(ctx, "a", "b", store.Page{Limit: 2, Before: ids[3]})
	if err != nil {
		t.Fatalf("history before: %v", err)
	}
	if !slices.Equal(texts(older), []string{"m2", "m3"}) {
		t.Fatalf("expected m2,m3 before m4, got %v", texts(older))
	}

	rest, err := st.History(ctx, "a", "b", store.Page{Before: ids[2]})
	if err != nil {
		t.Fatalf("history before without limit: %v", err)
	}
	if !slices.Equal(texts(rest), []string{"m1", "m2"}) {
		t.Fatalf("expected m1,m2, got %v", texts(rest))
	}

	if _, err := st.History(ctx, "a", "b", store.Page{Limit: 2, Before: "missing"}); !errors.Is(err, store.ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func testAllForUser(t *testing.T, st store.MessageStore) {
	ctx := context.Background()

	mustAppend(t, st, "u", "x", "1")
	mustAppend(t, st, "y", "u", "2")
	mustAppend(t, st, "x", "y", "not mine")
	mustAppend(t, st, "u", "y", "3")

	all, err := st.AllForUser(ctx, "u")
	if err != nil {
		t.Fatalf("all for user: %v", err)
	}
	if !slices.Equal(texts(all), []string{"3", "2", "1"}) {
		t.Fatalf("expected newest first, got %v", texts(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("createdAt not descending at %d", i)
		}
	}
}

func testDeleteByID(t *testing.T, st store.MessageStore) {
	ctx := context.Background()

	keep := mustAppend(t, st, "u1", "u2", "keep")
	victim := mustAppend(t, st, "u1", "u2", "delete me")

	if err := st.DeleteByID(ctx, "nope", "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteByID(ctx, victim.ID, "u2"); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for receiver, got %v", err)
	}
	if err := st.DeleteByID(ctx, victim.ID, "u1"); err != nil {
		t.Fatalf("delete by sender: %v", err)
	}
	if err := st.DeleteByID(ctx, victim.ID, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}

	history, err := st.History(ctx, "u1", "u2", store.Page{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ID != keep.ID {
		t.Fatalf("expected only kept message, got %v", texts(history))
	}
}

func testMarkRead(t *testing.T, st store.MessageStore) {
	ctx := context.Background()

	mustAppend(t, st, "b", "a", "1")
	mustAppend(t, st, "b", "a", "2")
	mustAppend(t, st, "a", "b", "mine")
	mustAppend(t, st, "c", "a", "from c")

	updated, err := st.MarkRead(ctx, "a", "b")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated, got %d", updated)
	}

	again, err := st.MarkRead(ctx, "a", "b")
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if again != 0 {
		t.Fatalf("second mark read should change nothing, got %d", again)
	}

	all, err := st.AllForUser(ctx, "a")
	if err != nil {
		t.Fatalf("all for user: %v", err)
	}
	for _, m := range all {
		wantRead := m.SenderID == "b"
		if m.Read != wantRead {
			t.Errorf("message %q read=%v, want %v", m.Text, m.Read, wantRead)
		}
	}
}
