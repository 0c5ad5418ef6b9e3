package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/internal/config"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Store owns the credential record. Every mutation is written through to durable storage
// before the call returns.
type Store struct {
	mu      sync.RWMutex
	rec     Record
	storage Storage
	key     string
	cache   CacheResetter
	bus     *events.Bus
	log     zerolog.Logger

	// seq numbers record changes under mu; announced is the last one published, under pubMu.
	seq       uint64
	pubMu     sync.Mutex
	announced uint64
}

type StoreOption func(*Store)

func WithStorageKey(key string) StoreOption {
	return func(s *Store) { s.key = key }
}

func WithCache(c CacheResetter) StoreOption {
	return func(s *Store) { s.cache = c }
}

func WithBus(b *events.Bus) StoreOption {
	return func(s *Store) { s.bus = b }
}

func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore creates a store and restores the persisted record, if any. A corrupt entry is
// dropped so the user simply has to log in again.
func NewStore(ctx context.Context, storage Storage, opts ...StoreOption) (*Store, error) {
	if storage == nil {
		return nil, fmt.Errorf("[credentials NewStore] storage is required")
	}
	s := &Store{
		storage: storage,
		key:     config.StorageKey,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, errors.Wrapf(err, "[credentials NewStore] load %q", s.key)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("discarding persisted credentials")
		if delErr := storage.Delete(ctx, s.key); delErr != nil {
			return nil, errors.Wrapf(delErr, "[credentials NewStore] delete corrupt %q", s.key)
		}
		return s, nil
	}
	s.rec = rec
	return s, nil
}

func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec
}

func (s *Store) AccessToken() string {
	return s.Snapshot().AccessToken
}

func (s *Store) RefreshToken() string {
	return s.Snapshot().RefreshToken
}

func (s *Store) Role() string {
	return s.Snapshot().Role
}

func (s *Store) UserID() string {
	return s.Snapshot().UserID
}

func (s *Store) RequestID() string {
	return s.Snapshot().RequestID
}

func (s *Store) IssuedAt() time.Time {
	return s.Snapshot().IssuedAt
}

func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

// Token exposes the record as an oauth2 token. Expiry is IssuedAt plus lifetime; a zero
// lifetime leaves Expiry unset.
func (s *Store) Token(lifetime time.Duration) *oauth2.Token {
	rec := s.Snapshot()
	t := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    "Bearer",
	}
	if lifetime > 0 && !rec.IssuedAt.IsZero() {
		t.Expiry = rec.IssuedAt.Add(lifetime)
	}
	return t
}

// SaveToken stores a new access token and stamps its issue time.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	var issued time.Time
	seq, err := s.mutate(ctx, func(r *Record) {
		r.AccessToken = token
		r.IssuedAt = time.Time{}
		if token != "" {
			r.IssuedAt = NowTimeFunc()
		}
		issued = r.IssuedAt
	})
	s.announce(seq, events.TokenChangedEvent{Token: token, IssuedAt: issued})
	return err
}

func (s *Store) SaveRefreshToken(ctx context.Context, token string) error {
	_, err := s.mutate(ctx, func(r *Record) { r.RefreshToken = token })
	return err
}

func (s *Store) SaveUserID(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, func(r *Record) { r.UserID = id })
	return err
}

func (s *Store) SaveRole(ctx context.Context, role string) error {
	_, err := s.mutate(ctx, func(r *Record) { r.Role = role })
	return err
}

// SaveLogin replaces the record with a fresh login in a single write.
func (s *Store) SaveLogin(ctx context.Context, l Login) error {
	if l.AccessToken == "" {
		return fmt.Errorf("[credentials SaveLogin] %w: empty access token", errors.ErrInvalidToken)
	}
	var issued time.Time
	seq, err := s.mutate(ctx, func(r *Record) {
		*r = Record{
			AccessToken:  l.AccessToken,
			RefreshToken: l.RefreshToken,
			UserID:       l.UserID,
			Role:         l.Role,
			RequestID:    uuid.NewString(),
			IssuedAt:     NowTimeFunc(),
		}
		issued = r.IssuedAt
	})
	s.announce(seq, events.TokenChangedEvent{Token: l.AccessToken, IssuedAt: issued})
	return err
}

// RemoveToken clears both tokens and the issue time, deletes the durable entry and resets the
// request cache.
func (s *Store) RemoveToken(ctx context.Context) error {
	s.mu.Lock()
	s.rec.AccessToken = ""
	s.rec.RefreshToken = ""
	s.rec.IssuedAt = time.Time{}
	err := s.storage.Delete(ctx, s.key)
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.resetCache()
	s.announce(seq, events.TokenChangedEvent{})
	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("failed to purge persisted credentials")
		return errors.Wrapf(err, "[credentials RemoveToken] delete %q", s.key)
	}
	return nil
}

// RemoveRole clears the role and persists what remains in the same critical section.
func (s *Store) RemoveRole(ctx context.Context) error {
	_, err := s.mutate(ctx, func(r *Record) { r.Role = "" })
	s.resetCache()
	return err
}

// Clear ends the session: every field is emptied, the durable entry is deleted and the request
// cache is reset.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.rec = Record{}
	err := s.storage.Delete(ctx, s.key)
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.resetCache()
	s.announce(seq, events.TokenChangedEvent{})
	if err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("failed to purge persisted credentials")
		return errors.Wrapf(err, "[credentials Clear] delete %q", s.key)
	}
	return nil
}

// mutate applies fn and persists the result. The returned sequence number orders the change
// against every other one made through this store.
func (s *Store) mutate(ctx context.Context, fn func(r *Record)) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.rec)
	s.seq++
	data, err := encodeRecord(s.rec)
	if err != nil {
		return s.seq, errors.Wrapf(err, "[credentials] encode")
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("failed to persist credentials")
		return s.seq, errors.Wrapf(err, "[credentials] save %q", s.key)
	}
	return s.seq, nil
}

// announce publishes e unless a later change has already been announced, so subscribers never
// end on a token the store no longer holds. The record lock is not held here, which leaves
// handlers free to read the store.
func (s *Store) announce(seq uint64, e events.TokenChangedEvent) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if seq <= s.announced {
		s.log.Debug().Uint64("seq", seq).Msg("skipping superseded token change")
		return
	}
	s.announced = seq
	s.bus.PublishTokenChanged(e)
}

func (s *Store) resetCache() {
	if s.cache != nil {
		s.cache.Reset()
	}
}
