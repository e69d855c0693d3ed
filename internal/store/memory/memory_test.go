package memory

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/wiredm-server/internal/store"
	"github.com/vovakirdan/wiredm-server/internal/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.MessageStore {
		return New()
	})
}

func TestReturnedMessagesAreCopies(t *testing.T) {
	st := New()
	ctx := context.Background()

	created, err := st.Append(ctx, "u1", "u2", "hi")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	created.Text = "mutated"

	history, err := st.History(ctx, "u1", "u2", store.Page{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	history[0].Read = true

	again, _ := st.History(ctx, "u1", "u2", store.Page{})
	if again[0].Text != "hi" || again[0].Read {
		t.Fatalf("store state leaked through returned pointers: %+v", again[0])
	}
}

func TestClockStampsMessages(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st := NewWithClock(func() time.Time { return fixed })

	msg, err := st.Append(context.Background(), "u1", "u2", "hi")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !msg.CreatedAt.Equal(fixed) || !msg.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected fixed timestamps, got %v / %v", msg.CreatedAt, msg.UpdatedAt)
	}
}
