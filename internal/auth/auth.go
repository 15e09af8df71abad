// Package auth exposes the signed-in user.
package auth

import (
	"errors"
	"strings"
	"sync"
)

// ErrInvalidUser is returned when signing in with an empty ID.
var ErrInvalidUser = errors.New("user id cannot be empty")

// User is an authenticated identity.
type User struct {
	ID string
}

// Provider reports the current user, if any.
type Provider interface {
	Current() (User, bool)
}

// Static is a Provider with explicit sign-in and sign-out.
// The zero value has nobody signed in.
type Static struct {
	mu   sync.RWMutex
	user *User
}

// NewStatic returns a provider with id signed in. An empty id signs nobody in.
func NewStatic(id string) *Static {
	s := &Static{}
	_ = s.SignIn(id)
	return s
}

// Current implements Provider.
func (s *Static) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// SignIn replaces the current user.
func (s *Static) SignIn(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidUser
	}
	s.mu.Lock()
	s.user = &User{ID: id}
	s.mu.Unlock()
	return nil
}

// SignOut clears the current user.
func (s *Static) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}
