package devserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-admin-client/users"
)

// AddUser creates an account that can log in with email and password.
func (s *Server) AddUser(email, password string, role users.RoleType) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[devserver AddUser] %w", err)
	}
	u := &users.User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         role,
		DateJoined:   time.Now(),
	}
	if err := s.users.Upsert(u); err != nil {
		return nil, fmt.Errorf("[devserver AddUser] %w", err)
	}
	return u, nil
}

// Seed stores a record directly, bypassing authentication.
func (s *Server) Seed(resource string, rec Record) Record {
	return s.records.create(resource, rec)
}

func (s *Server) Count(resource string) int {
	return s.records.count(resource)
}

// ExpireAccessTokens makes every access token issued so far answer 401.
func (s *Server) ExpireAccessTokens() {
	s.generation.Add(1)
}

// RevokeRefreshTokens makes every outstanding refresh token invalid.
func (s *Server) RevokeRefreshTokens() error {
	return s.refreshTokens.RevokeAll()
}

// RefreshCalls is the number of requests received on the refresh endpoint.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

func (s *Server) LogoutCalls() int {
	return int(s.logoutCalls.Load())
}

// SetRefreshDelay holds every refresh response for d, so concurrent clients pile up behind it.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.delayLock.Lock()
	defer s.delayLock.Unlock()
	s.refreshDelay = d
}

func (s *Server) RefreshDelay() time.Duration {
	s.delayLock.RLock()
	defer s.delayLock.RUnlock()
	return s.refreshDelay
}
