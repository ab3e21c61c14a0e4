package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsloashh/yards-app/internal/models"
)

// Registry tracks live sessions by id and expires idle ones.
type Registry struct {
	opts Options
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(opts Options, ttl time.Duration) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		opts:     opts,
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session whose location cycles live under ctx.
func (r *Registry) Create(ctx context.Context) *Session {
	s := newSession(ctx, uuid.NewString(), r.opts)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session and marks it active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Sweep closes sessions idle for longer than the registry TTL and returns
// how many were removed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
