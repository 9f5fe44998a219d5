package conversation

import (
	"errors"
	"sync"

	"github.com/sekai02/photocat/internal/ids"
)

var ErrUnknownSession = errors.New("unknown session")

// Sessions keeps one Session per id.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[ids.SessionID]Session
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[ids.SessionID]Session)}
}

// Open registers a fresh idle session. Reopening an existing id keeps it.
func (s *Sessions) Open(id ids.SessionID) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := Session{ID: id, State: Idle}
	s.sessions[id] = sess
	return sess
}

func (s *Sessions) Get(id ids.SessionID) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrUnknownSession
	}
	return sess, nil
}

func (s *Sessions) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Sessions) Close(id ids.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
