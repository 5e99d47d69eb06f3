package dispatch

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry holds one Scheduler per simulation session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Scheduler
	opts     []Option
}

// NewRegistry returns an empty registry. opts are applied to every scheduler
// it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{sessions: make(map[string]*Scheduler), opts: opts}
}

// Create starts a new session with a random id.
func (r *Registry) Create(cfg Config) (string, *Scheduler) {
	id := uuid.NewString()
	opts := append(append([]Option{}, r.opts...), WithSessionID(id))
	s := NewScheduler(cfg, opts...)
	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	activeSessions.Set(float64(n))
	return id, s
}

// Get returns the session's scheduler.
func (r *Registry) Get(id string) (*Scheduler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete ends a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	activeSessions.Set(float64(n))
	return ok
}

// IDs lists the open sessions in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// TickAll advances every session and returns their statuses by id.
func (r *Registry) TickAll() map[string]Status {
	r.mu.RLock()
	list := make(map[string]*Scheduler, len(r.sessions))
	for id, s := range r.sessions {
		list[id] = s
	}
	r.mu.RUnlock()
	out := make(map[string]Status, len(list))
	for id, s := range list {
		out[id] = s.Tick()
	}
	return out
}
