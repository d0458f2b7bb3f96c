// Package registry holds the handler implementations a construction pass
// binds descriptors against. The embedding program registers callables under
// stable keys before building; descriptors on disk reference those keys.
package registry

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/regfold/regfold/internal/event"
)

// Middleware wraps an http.Handler. The shape matches what chi routers
// accept, so registered middlewares compose directly onto route chains.
type Middleware func(http.Handler) http.Handler

// Registry is a name -> callable lookup. Registration should be idempotent
// from the caller's perspective: re-registering a key is rejected rather
// than silently replaced.
type Registry struct {
	mu          sync.RWMutex
	functions   map[string]event.Handler
	handlers    map[string]http.Handler
	middlewares map[string]Middleware
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		functions:   make(map[string]event.Handler),
		handlers:    make(map[string]http.Handler),
		middlewares: make(map[string]Middleware),
	}
}

// RegisterFunction associates a background handler with a key.
func (r *Registry) RegisterFunction(key string, h event.Handler) error {
	if h == nil {
		return fmt.Errorf("registry: function %q is nil", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.functions[key]; ok {
		return fmt.Errorf("registry: function %q already registered", key)
	}
	r.functions[key] = h
	return nil
}

// RegisterHandler associates an HTTP handler with a key.
func (r *Registry) RegisterHandler(key string, h http.Handler) error {
	if h == nil {
		return fmt.Errorf("registry: handler %q is nil", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[key]; ok {
		return fmt.Errorf("registry: handler %q already registered", key)
	}
	r.handlers[key] = h
	return nil
}

// RegisterMiddleware associates a middleware with a key.
func (r *Registry) RegisterMiddleware(key string, m Middleware) error {
	if m == nil {
		return fmt.Errorf("registry: middleware %q is nil", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.middlewares[key]; ok {
		return fmt.Errorf("registry: middleware %q already registered", key)
	}
	r.middlewares[key] = m
	return nil
}

// Function returns the background handler registered under key.
func (r *Registry) Function(key string) (event.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.functions[key]
	return h, ok
}

// Handler returns the HTTP handler registered under key.
func (r *Registry) Handler(key string) (http.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key]
	return h, ok
}

// Middleware returns the middleware registered under key.
func (r *Registry) Middleware(key string) (Middleware, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.middlewares[key]
	return m, ok
}
