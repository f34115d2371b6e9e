package server

import (
	"errors"
	"sort"
	"strconv"
	"sync"
)

var (
	// ErrNicknameTaken is returned when registering a nickname that a live session already holds.
	ErrNicknameTaken = errors.New("server: nickname already taken")

	// ErrClientRegistered is returned when registering a client that already has a nickname.
	ErrClientRegistered = errors.New("server: client already registered")
)

// Registry maps clients to nicknames and back. Every operation takes the same
// mutex, so both directions always change together and nickname generation
// cannot race with registration.
type Registry struct {
	mu        sync.Mutex
	nicknames map[*Client]string
	clients   map[string]*Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		nicknames: make(map[*Client]string),
		clients:   make(map[string]*Client),
	}
}

// GenerateUnique returns base if no live session holds it, otherwise base
// with the first free numeric suffix starting at 2. Nothing is reserved; use
// Reserve when the name must stay free until it is registered.
func (r *Registry) GenerateUnique(base string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uniqueLocked(base)
}

func (r *Registry) uniqueLocked(base string) string {
	if _, taken := r.clients[base]; !taken {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + strconv.Itoa(i)
		if _, taken := r.clients[candidate]; !taken {
			return candidate
		}
	}
}

// Reserve generates a unique nickname from base and registers it for c in
// one locked step.
func (r *Registry) Reserve(c *Client, base string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nicknames[c]; ok {
		return "", ErrClientRegistered
	}
	nickname := r.uniqueLocked(base)
	r.nicknames[c] = nickname
	r.clients[nickname] = c
	return nickname, nil
}

// Register inserts both directions of the mapping.
func (r *Registry) Register(c *Client, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nicknames[c]; ok {
		return ErrClientRegistered
	}
	if _, ok := r.clients[nickname]; ok {
		return ErrNicknameTaken
	}
	r.nicknames[c] = nickname
	r.clients[nickname] = c
	return nil
}

// Unregister removes c and reports the nickname it held. Removing a client
// that is not registered is a no-op.
func (r *Registry) Unregister(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nickname, ok := r.nicknames[c]
	if !ok {
		return "", false
	}
	delete(r.nicknames, c)
	delete(r.clients, nickname)
	return nickname, true
}

// LookupNickname returns the nickname registered for c.
func (r *Registry) LookupNickname(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nickname, ok := r.nicknames[c]
	return nickname, ok
}

// LookupClient returns the client holding nickname.
func (r *Registry) LookupClient(nickname string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[nickname]
	return c, ok
}

// Snapshot returns a point-in-time copy of all registered clients.
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.nicknames))
	for c := range r.nicknames {
		clients = append(clients, c)
	}
	return clients
}

// Nicknames returns the registered nicknames in sorted order.
func (r *Registry) Nicknames() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.clients))
	for nickname := range r.clients {
		names = append(names, nickname)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nicknames)
}
