package realtime

import (
	"sort"
)

// Client is one live socket connection. Outbound frames are queued on a
// buffered channel drained by the connection's write pump; when the buffer is
// full the frame is dropped rather than blocking the dispatcher.
type Client struct {
	UserID string
	send   chan []byte
}

// NewClient creates a connection handle for an authenticated user.
func NewClient(userID string) *Client {
	return &Client{
		UserID: userID,
		send:   make(chan []byte, 64),
	}
}

// Outbox exposes the frame queue to the connection's write pump.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

func (c *Client) push(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

// Registry maps user ids to their single live connection. A later
// registration for the same user replaces the earlier one
// (last-registration-wins); concurrent multi-device is a known limitation.
//
// The map is deliberately unsynchronized: all mutation and lookup happens on
// the Gateway's dispatch goroutine, which handles each event to completion
// before the next.
type Registry struct {
	byUser map[string]*Client
}

// NewRegistry creates an empty registry. It is injected into the Gateway so
// tests can build isolated instances.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Client)}
}

// Register inserts the client under its user id, replacing any previous
// connection for that user.
func (r *Registry) Register(c *Client) {
	if c.UserID == "" {
		return
	}
	r.byUser[c.UserID] = c
}

// Unregister removes the entry matching this exact connection handle. A
// connection that disconnected before registering, or that was already
// replaced by a newer one for the same user, leaves the registry untouched.
func (r *Registry) Unregister(c *Client) bool {
	cur, ok := r.byUser[c.UserID]
	if !ok || cur != c {
		return false
	}
	delete(r.byUser, c.UserID)
	return true
}

// Lookup returns the live connection for a user, or nil.
func (r *Registry) Lookup(userID string) *Client {
	return r.byUser[userID]
}

// Roster returns the sorted user ids of all registered connections.
func (r *Registry) Roster() []string {
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) all() []*Client {
	clients := make([]*Client, 0, len(r.byUser))
	for _, c := range r.byUser {
		clients = append(clients, c)
	}
	return clients
}
