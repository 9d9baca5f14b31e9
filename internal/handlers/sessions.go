package handlers

import (
	"time"

	"github.com/patrickmn/go-cache"

	"kmchat/internal/session"
)

// SessionStore holds the current session state for each user between
// requests. States expire with inactivity; an expired session just forces a
// fresh bootstrap.
type SessionStore struct {
	states *cache.Cache
}

// NewSessionStore creates a session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		states: cache.New(24*time.Hour, 1*time.Hour),
	}
}

// Get returns the user's current session state.
func (s *SessionStore) Get(user string) (session.SessionState, bool) {
	v, found := s.states.Get(user)
	if !found {
		return session.SessionState{}, false
	}
	return v.(session.SessionState), true
}

// Put stores the user's session state and refreshes its expiry.
func (s *SessionStore) Put(state session.SessionState) {
	s.states.SetDefault(state.User, state)
}
