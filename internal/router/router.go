// Package router implements the venue router: a map from lowercase
// venue name to adapter.
package router

import (
	"strings"
	"sync"

	"github.com/latentspeed/gateway/adapter"
)

// Router owns every registered adapter, keyed by lowercase venue name.
type Router struct {
	mu       sync.RWMutex
	adapters map[string]adapter.Adapter
}

// New creates an empty Router.
func New() *Router {
	return &Router{adapters: make(map[string]adapter.Adapter)}
}

// Register takes ownership of a, keyed by its lowercase exchange name.
func (r *Router) Register(name string, a adapter.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(name)] = a
}

// Get returns the adapter registered for name, or (nil, false) if none.
func (r *Router) Get(name string) (adapter.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(name)]
	return a, ok
}

// Names returns every registered venue name.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	return out
}
