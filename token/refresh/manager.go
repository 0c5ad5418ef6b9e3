package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/go-admin-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const tokenBytes = 32

// Manager issues and validates the backend's refresh tokens.
type Manager struct {
	repo Repo
	ttl  time.Duration
}

func NewManager(repo Repo, ttl time.Duration) *Manager {
	return &Manager{
		repo: repo,
		ttl:  ttl,
	}
}

// Create issues a new refresh token, replacing any previous one for the user.
func (m *Manager) Create(userID string) (string, error) {
	if err := m.repo.DeleteByUserID(userID); err != nil {
		return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
	}

	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(b)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Validate returns the stored token if it exists and has not expired.
func (m *Manager) Validate(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}
	if m.ttl > 0 && NowTimeFunc().Sub(rt.Iat) > m.ttl {
		_ = m.repo.Delete(token)
		return nil, errors.ErrSessionExpired
	}
	return rt, nil
}

// RevokeUser drops the user's refresh token.
func (m *Manager) RevokeUser(userID string) error {
	return m.repo.DeleteByUserID(userID)
}

// RevokeAll drops every refresh token.
func (m *Manager) RevokeAll() error {
	tokens, err := m.repo.List()
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if err := m.repo.Delete(t.Token); err != nil {
			return err
		}
	}
	return nil
}
