package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/wiredm-server/internal/store"
	"github.com/vovakirdan/wiredm-server/internal/store/memory"
	"github.com/vovakirdan/wiredm-server/internal/store/storetest"
)

// flakyStore fails every call with a backend error while down is true.
type flakyStore struct {
	store.MessageStore
	down  bool
	calls int
}

var errBackend = errors.New("connection refused")

func (f *flakyStore) Append(ctx context.Context, senderID, receiverID, text string) (*store.Message, error) {
	f.calls++
	if f.down {
		return nil, errBackend
	}
	return f.MessageStore.Append(ctx, senderID, receiverID, text)
}

func TestBreakerPassesContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.MessageStore {
		return New(memory.New(), Settings{FailureThreshold: 3, OpenTimeout: time.Second}, nil)
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyStore{MessageStore: memory.New(), down: true}
	st := New(inner, Settings{FailureThreshold: 2, OpenTimeout: time.Hour}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := st.Append(ctx, "u1", "u2", "hi"); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: expected backend error, got %v", i, err)
		}
	}

	_, err := st.Append(ctx, "u1", "u2", "hi")
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable once open, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open circuit must not reach the backend, calls=%d", inner.calls)
	}
	if st.State() != "open" {
		t.Fatalf("expected open state, got %s", st.State())
	}
}

func TestBreakerIgnoresDomainErrors(t *testing.T) {
	st := New(memory.New(), Settings{FailureThreshold: 1, OpenTimeout: time.Hour}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := st.Append(ctx, "u1", "u2", "   "); !errors.Is(err, store.ErrEmptyText) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if err := st.DeleteByID(ctx, "missing", "u1"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}

	if st.State() != "closed" {
		t.Fatalf("domain errors must not trip the breaker, state=%s", st.State())
	}
	if _, err := st.Append(ctx, "u1", "u2", "hi"); err != nil {
		t.Fatalf("append after domain errors: %v", err)
	}
}
