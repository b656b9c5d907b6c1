// File: internal/agent/registry.go

package agent

import (
	"sync"

	"github.com/xkilldash9x/phonepilot-cli/internal/device"
)

// Registry maps device handles to their sessions so each device has at most
// one session driving it. Embedders hold a Registry instead of relying on
// process-global state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Obtain returns the session registered for the handle, creating one via
// build on first use. The builder runs under the registry lock; keep it
// cheap.
func (r *Registry) Obtain(h device.Handle, build func() *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[h.String()]; ok {
		return s
	}
	s := build()
	r.sessions[h.String()] = s
	return s
}

// Lookup returns the session for the handle, if one exists.
func (r *Registry) Lookup(h device.Handle) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[h.String()]
	return s, ok
}

// Remove drops the session for the handle. The caller is responsible for
// stopping it first; removal does not interrupt a running loop.
func (r *Registry) Remove(h device.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, h.String())
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
