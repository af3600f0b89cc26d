package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hivereader/hivereader/broadcast"
)

// Session records how a logged-in user authenticated. The login method
// decides which signing transport the gateway uses for their writes.
type Session struct {
	Username string
	Method   broadcast.LoginMethod
}

// SessionStore is the in-memory token -> session map. Tokens are opaque and
// handed to the client at login; there is no server-side expiry beyond
// process lifetime, matching the session model of the original client.
type SessionStore struct {
	mu      sync.RWMutex
	byToken map[string]Session
	byUser  map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byToken: map[string]Session{},
		byUser:  map[string]string{},
	}
}

// Create registers a session and returns its token. A second login for the
// same user replaces the previous token.
func (s *SessionStore) Create(username string, method broadcast.LoginMethod) string {
	token := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[username]; ok {
		delete(s.byToken, old)
	}
	s.byToken[token] = Session{Username: username, Method: method}
	s.byUser[username] = token
	return token
}

// Lookup resolves a token; ok=false for unknown tokens.
func (s *SessionStore) Lookup(token string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byToken[token]
	return session, ok
}

// MethodFor returns the login method recorded for a username. Satisfies
// broadcast.LoginMethodResolver; users with no live session resolve to an
// empty method, which the gateway rejects as an auth failure.
func (s *SessionStore) MethodFor(username string) broadcast.LoginMethod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.byUser[username]
	if !ok {
		return ""
	}
	return s.byToken[token].Method
}

// Username resolves a token to its username. Satisfies the auth middleware's
// TokenVerifier.
func (s *SessionStore) Username(token string) (string, bool) {
	session, ok := s.Lookup(token)
	return session.Username, ok
}

// Revoke drops a session by token.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.byToken[token]; ok {
		delete(s.byUser, session.Username)
	}
	delete(s.byToken, token)
}
