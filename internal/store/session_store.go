package store

import (
	"sync"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionState is what the report view of one session sees. At most one
// of Error and Result is set, and neither while IsLoading.
type SessionState struct {
	IsLoading bool                    `json:"isLoading"`
	Error     string                  `json:"error,omitempty"`
	Result    *model.AssessmentReport `json:"result,omitempty"`
}

// Token identifies one submission. Only the latest token of a session may
// complete it.
type Token string

type entry struct {
	state SessionState
	token Token
}

// SessionStore keeps the latest assessment state per session in memory.
// Entries expire with the session TTL and are never written to disk.
type SessionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		cache: cache.New(ttl, ttl/2+time.Minute),
		ttl:   ttl,
	}
}

// StartLoading marks a new submission in flight and returns its token.
func (s *SessionStore) StartLoading(sessionID string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := Token(uuid.NewString())
	s.cache.Set(sessionID, &entry{state: SessionState{IsLoading: true}, token: token}, s.ttl)
	return token
}

// SetResult completes the submission identified by token with a report.
// It returns false when a newer submission has started since.
func (s *SessionStore) SetResult(sessionID string, token Token, report *model.AssessmentReport) bool {
	return s.complete(sessionID, token, SessionState{Result: report})
}

// SetError completes the submission identified by token with a message.
func (s *SessionStore) SetError(sessionID string, token Token, message string) bool {
	return s.complete(sessionID, token, SessionState{Error: message})
}

func (s *SessionStore) complete(sessionID string, token Token, state SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, found := s.cache.Get(sessionID)
	if !found {
		return false
	}
	e := x.(*entry)
	if e.token != token {
		return false
	}
	s.cache.Set(sessionID, &entry{state: state, token: token}, s.ttl)
	return true
}

// Get returns a copy of the session state; unknown sessions are idle.
func (s *SessionStore) Get(sessionID string) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if x, found := s.cache.Get(sessionID); found {
		return x.(*entry).state
	}
	return SessionState{}
}

// Clear forgets the session.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionID)
}
