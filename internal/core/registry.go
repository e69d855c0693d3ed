package core

import (
	"slices"
	"sync"
)

// Registry maps users to their live connections.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	count int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[*Client]struct{}),
	}
}

// Bind associates c with userID. Binding the same client twice is a no-op.
func (r *Registry) Bind(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.users[userID] = set
	}
	if _, exists := set[c]; exists {
		return
	}
	set[c] = struct{}{}
	r.count++
}

// Unbind removes c from userID and returns how many connections the user
// still has. The user entry is dropped when none remain.
func (r *Registry) Unbind(userID string, c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		return 0
	}
	if _, exists := set[c]; exists {
		delete(set, c)
		r.count--
	}
	if len(set) == 0 {
		delete(r.users, userID)
		return 0
	}
	return len(set)
}

// ConnectionsFor returns a snapshot of the user's connections.
func (r *Registry) ConnectionsFor(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Users returns the ids of every user with at least one connection, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Count returns the number of bound connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
