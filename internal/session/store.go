// Package session holds the in-memory session store: independent, titled
// conversation histories keyed by an opaque id, plus the active selection.
package session

import (
	"errors"
	"time"

	"gora/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Store maps session ids to sessions and tracks the active one.
// It is driven by a single UI and carries no locking.
type Store struct {
	sessions map[string]*Session
	order    []string
	active   string

	newID func() string
	now   func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Create adds a new empty session, makes it active and returns it.
func (s *Store) Create() *Session {
	id := s.newID()
	for {
		if _, exists := s.sessions[id]; !exists {
			break
		}
		id = s.newID()
	}

	sess := &Session{
		ID:        id,
		Title:     PlaceholderTitle,
		CreatedAt: s.now(),
	}
	s.sessions[id] = sess
	s.order = append(s.order, id)
	s.active = id

	logging.Get(logging.CategorySession).Debug("session created", zap.String("id", id))
	return sess
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Select makes the given session active.
func (s *Store) Select(id string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	s.active = id
	return sess, nil
}

// Delete removes exactly one session. If it was active, nothing is active afterwards.
func (s *Store) Delete(id string) error {
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == id {
		s.active = ""
	}

	logging.Get(logging.CategorySession).Debug("session deleted", zap.String("id", id))
	return nil
}

// Active returns the active session, or nil when none is selected.
func (s *Store) Active() *Session {
	if s.active == "" {
		return nil
	}
	return s.sessions[s.active]
}

// ActiveID returns the active session id, or "".
func (s *Store) ActiveID() string {
	return s.active
}

// List returns sessions in creation order.
func (s *Store) List() []*Session {
	out := make([]*Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	return len(s.sessions)
}
