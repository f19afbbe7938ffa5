package bot

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vulntor/botkit/pkg/async"
)

// Registry maps bot IDs to clients. Jobs use it to find the client a
// request was enqueued for.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add registers c under its ID. Adding a second client with the same ID is
// an error.
func (r *Registry) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID()]; ok {
		return fmt.Errorf("bot %s already registered", c.ID())
	}
	r.clients[c.ID()] = c
	return nil
}

// Get returns the client registered under id.
func (r *Registry) Get(id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, &async.ClientNotFoundError{ID: id}
	}
	return c, nil
}

// Lookup implements async.ClientLocator.
func (r *Registry) Lookup(id string) (async.Client, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MustLookup is like Get but panics when id is unknown.
func (r *Registry) MustLookup(id string) *Client {
	c, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return c
}

// IDs returns the registered IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ async.ClientLocator = (*Registry)(nil)
