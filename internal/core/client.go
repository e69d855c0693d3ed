package core

import "sync"

// DefaultSendBuffer is the event buffer size when none is configured.
const DefaultSendBuffer = 32

// Client is one live connection as seen by the core layer. Transports drain
// Events and stop when Done is closed.
type Client struct {
	ID     string
	UserID string

	events chan *Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewClient constructs a client with a bounded event buffer.
func NewClient(id, userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		ID:     id,
		UserID: userID,
		events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the stream of events for this connection.
func (c *Client) Events() <-chan *Event {
	return c.events
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Deliver enqueues ev without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *Client) Deliver(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Close marks the client closed. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
