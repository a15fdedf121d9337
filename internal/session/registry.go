// Package session keeps one conversation context per session and serializes
// the turns of each session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/samson/internal/dialogue"
)

var ErrNotFound = errors.New("session not found")

// TurnFunc processes one utterance against a session's context.
// (*processor.Processor).HandleTurn satisfies it.
type TurnFunc func(ctx context.Context, sessionID string, c *dialogue.Context, utterance string) string

type session struct {
	mu         sync.Mutex
	id         string
	createdAt  time.Time
	lastActive time.Time
	turns      int
	conv       *dialogue.Context
}

// Info is a read-only view of a session.
type Info struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Turns      int       `json:"turns"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

type Reply struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	State     string `json:"state"`
}

// Registry is a process-local session table, safe for concurrent use.
// Sessions are never persisted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	handle   TurnFunc
	now      func() time.Time
}

func NewRegistry(handle TurnFunc) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		handle:   handle,
		now:      time.Now,
	}
}

// Create opens a new session with an empty context.
func (r *Registry) Create() Info {
	now := r.now()
	s := &session{
		id:         uuid.NewString(),
		createdAt:  now,
		lastActive: now,
		conv:       dialogue.New(),
	}
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s.info()
}

func (r *Registry) Get(id string) (Info, error) {
	s, ok := r.lookup(id)
	if !ok {
		return Info{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(), nil
}

// Delete ends a session and discards its context.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Turn runs one utterance through the session. Turns on the same session
// run one at a time; different sessions proceed independently.
func (r *Registry) Turn(ctx context.Context, id, utterance string) (Reply, error) {
	s, ok := r.lookup(id)
	if !ok {
		return Reply{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	response := r.handle(ctx, s.id, s.conv, utterance)
	s.turns++
	s.lastActive = r.now()
	return Reply{SessionID: s.id, Response: response, State: string(s.conv.State())}, nil
}

// EvictIdle removes sessions inactive for longer than maxIdle and reports
// how many were removed.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, s := range r.sessions {
		if !s.mu.TryLock() {
			continue // mid-turn
		}
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) lookup(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// info requires s.mu or exclusive ownership of s.
func (s *session) info() Info {
	return Info{
		ID:         s.id,
		State:      string(s.conv.State()),
		Turns:      s.turns,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
	}
}
