package server

import (
	"slices"
	"sync"
)

// Registry tracks attached connections and the player name each one
// registered. The hub goroutine is the only writer; the mutex lets health
// checks read counts concurrently.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]string
	order   []*Client
}

func newRegistry() *Registry {
	return &Registry{clients: make(map[*Client]string)}
}

func (r *Registry) add(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; ok {
		return false
	}
	r.clients[c] = ""
	r.order = append(r.order, c)
	return true
}

// remove detaches c and returns the player name it had registered.
func (r *Registry) remove(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.clients[c]
	if !ok {
		return "", false
	}
	delete(r.clients, c)
	for i, o := range r.order {
		if o == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return name, true
}

func (r *Registry) bind(c *Client, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; ok {
		r.clients[c] = name
	}
}

// unbind clears the player name of every connection registered under one
// of names. The connections stay attached.
func (r *Registry) unbind(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c, name := range r.clients {
		if name != "" && slices.Contains(names, name) {
			r.clients[c] = ""
		}
	}
}

// attached reports whether c is known, registered or not.
func (r *Registry) attached(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.clients[c]
	return ok
}

// Name returns the player name registered on c.
func (r *Registry) Name(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.clients[c]
	return name, ok && name != ""
}

// Count is the number of connections registered as players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, name := range r.clients {
		if name != "" {
			n++
		}
	}
	return n
}

// Connections is the number of attached connections.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

// players returns the registered connections in attach order.
func (r *Registry) players() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.order))
	for _, c := range r.order {
		if r.clients[c] != "" {
			clients = append(clients, c)
		}
	}
	return clients
}

// all returns every attached connection.
func (r *Registry) all() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Client(nil), r.order...)
}
