// Package auth is the session's login and logout surface.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

// Backend is the part of the API client the service calls.
type Backend interface {
	Login(ctx context.Context, email, password string) (*credentials.Login, error)
	Logout(ctx context.Context) error
}

type Service struct {
	backend Backend
	store   *credentials.Store
	bus     *events.Bus
	log     zerolog.Logger
}

// Identity is who the session belongs to.
type Identity struct {
	UserID string
	Role   string
}

// Claims is the unverified content of the access token. The backend is the only party that
// verifies it; the client reads it for display and expiry hints.
type Claims struct {
	Subject   string
	Role      string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	Role string `json:"role"`
	jwtlib.RegisteredClaims
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(backend Backend, store *credentials.Store, bus *events.Bus, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		store:   store,
		bus:     bus,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates against the backend and stores the resulting credentials. On failure the
// store is left as it was.
func (s *Service) Login(ctx context.Context, email, password string) (*credentials.Login, error) {
	email = strings.TrimSpace(email)
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	l, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.log.Info().Err(err).Str("email", email).Msg("login rejected")
		return nil, fmt.Errorf("[auth Login] %w", err)
	}
	if err := s.store.SaveLogin(ctx, *l); err != nil {
		return nil, fmt.Errorf("[auth Login] %w", err)
	}

	s.log.Info().Str("user_id", l.UserID).Str("role", l.Role).Msg("logged in")
	return l, nil
}

// Logout ends the session. The backend is told first; whatever it answers, local credentials
// are cleared and a logout event is published.
func (s *Service) Logout(ctx context.Context) error {
	endedByRefresh := false
	if s.store.Authenticated() {
		if err := s.backend.Logout(ctx); err != nil {
			s.log.Warn().Err(err).Msg("backend logout failed")
		}
		// A failed refresh during the call has already cleared the store and announced the logout.
		endedByRefresh = !s.store.Authenticated()
	}

	err := s.store.Clear(ctx)
	if !endedByRefresh {
		s.bus.PublishLogout(events.LogoutEvent{Reason: events.ReasonUserLogout, At: time.Now()})
	}
	if err != nil {
		return fmt.Errorf("[auth Logout] %w", err)
	}
	s.log.Info().Msg("logged out")
	return nil
}

func (s *Service) Authenticated() bool {
	return s.store.Authenticated()
}

func (s *Service) Identity() (Identity, error) {
	rec := s.store.Snapshot()
	if !rec.Authenticated() {
		return Identity{}, errors.ErrNotAuthenticated
	}
	return Identity{UserID: rec.UserID, Role: rec.Role}, nil
}

// Claims decodes the current access token without checking its signature.
func (s *Service) Claims() (*Claims, error) {
	token := s.store.AccessToken()
	if token == "" {
		return nil, errors.ErrNotAuthenticated
	}
	return ParseClaims(token)
}

func ParseClaims(token string) (*Claims, error) {
	parsed := &accessClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, parsed); err != nil {
		return nil, fmt.Errorf("[auth ParseClaims] %w: %v", errors.ErrInvalidToken, err)
	}

	c := &Claims{
		Subject: parsed.Subject,
		Role:    parsed.Role,
		ID:      parsed.ID,
	}
	if parsed.IssuedAt != nil {
		c.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		c.ExpiresAt = parsed.ExpiresAt.Time
	}
	return c, nil
}
