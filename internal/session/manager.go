package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Registry holds conversation sessions in memory. The janitor sweep is the
// only place sessions age out; reads never check staleness themselves.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[string]*Session
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	onExpire      func(*Session)
}

func NewRegistry(cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Registry{
		sessions:      make(map[string]*Session),
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		now:           cfg.Clock,
	}
}

func (r *Registry) SetExpireHook(hook func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = hook
}

// TTL reports the configured maximum session age.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Create registers a new session seeded with the given messages.
func (r *Registry) Create(unitNumber int, seed []Message) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		UnitNumber: unitNumber,
		Messages:   append([]Message(nil), seed...),
		CreatedAt:  r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return clone(s)
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// AppendTurn appends a user message and the assistant reply as one unit.
func (r *Registry) AppendTurn(id string, user, assistant Message) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Messages = append(s.Messages, user, assistant)
	return clone(s), nil
}

// Delete removes the session and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepOnce removes every session whose age at now has reached the TTL and
// returns how many were removed.
func (r *Registry) SweepOnce(now time.Time) int {
	var expired []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.CreatedAt) < r.ttl {
			continue
		}
		expired = append(expired, clone(s))
		delete(r.sessions, id)
	}
	hook := r.onExpire
	r.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
	return len(expired)
}

// StartJanitor sweeps on every interval tick until ctx is done.
func (r *Registry) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.SweepOnce(r.now())
			}
		}
	}()
}

func clone(s *Session) *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}
