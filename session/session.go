// Package session owns everything one logged-in admin needs: credential store, API client,
// refresh coordinator, lifecycle monitor, request cache and event bus. Callers get these from a
// Session instead of package globals.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/apiclient"
	"github.com/jrsteele09/go-admin-client/auth"
	"github.com/jrsteele09/go-admin-client/cache"
	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/internal/config"
	"github.com/jrsteele09/go-admin-client/lifecycle"
	"github.com/jrsteele09/go-admin-client/resources"
)

type Session struct {
	Bus     *events.Bus
	Cache   *cache.Cache
	Store   *credentials.Store
	Client  *apiclient.Client
	Auth    *auth.Service
	Monitor *lifecycle.Monitor

	log          zerolog.Logger
	closeStorage func() error
}

type options struct {
	baseURL    string
	storage    credentials.Storage
	httpClient apiclient.HTTPDoer
	logger     zerolog.Logger
}

type Option func(*options)

// WithBaseURL points the session at another backend than the configured one.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithStorage bypasses the configured storage backend.
func WithStorage(s credentials.Storage) Option {
	return func(o *options) { o.storage = s }
}

func WithHTTPClient(c apiclient.HTTPDoer) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds a session and restores any persisted credentials. The lifecycle monitor is running
// when New returns; Close stops it.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Session, error) {
	o := options{
		baseURL: cfg.GetBaseURL(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		Bus:          events.New(),
		log:          o.logger,
		closeStorage: func() error { return nil },
	}

	storage := o.storage
	if storage == nil {
		st, closeFn, err := NewStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		storage, s.closeStorage = st, closeFn
	}

	s.Cache = cache.New(
		cache.WithSize(cfg.GetCacheSize()),
		cache.WithTTL(cfg.GetCacheTTL()),
		cache.WithLogger(o.logger.With().Str("component", "cache").Logger()),
	)

	store, err := credentials.NewStore(ctx, storage,
		credentials.WithStorageKey(cfg.GetStorageKey()),
		credentials.WithCache(s.Cache),
		credentials.WithBus(s.Bus),
		credentials.WithLogger(o.logger.With().Str("component", "credentials").Logger()),
	)
	if err != nil {
		_ = s.closeStorage()
		return nil, fmt.Errorf("[session New] %w", err)
	}
	s.Store = store

	client, err := apiclient.New(apiclient.Config{
		BaseURL:        o.baseURL,
		RequestTimeout: cfg.GetRequestTimeout(),
		HTTPClient:     o.httpClient,
		Bus:            s.Bus,
		Logger:         &o.logger,
	}, store)
	if err != nil {
		_ = s.closeStorage()
		return nil, fmt.Errorf("[session New] %w", err)
	}
	s.Client = client

	s.Auth = auth.NewService(client, store, s.Bus,
		auth.WithLogger(o.logger.With().Str("component", "auth").Logger()))

	s.Monitor = lifecycle.NewMonitor(store, s.Bus,
		lifecycle.WithInactivityTimeout(cfg.GetInactivityTimeout()),
		lifecycle.WithTokenLifetime(cfg.GetTokenLifetime()),
		lifecycle.WithLogger(o.logger.With().Str("component", "lifecycle").Logger()),
	)
	if err := s.Monitor.Start(); err != nil {
		_ = s.closeStorage()
		return nil, fmt.Errorf("[session New] %w", err)
	}

	s.log.Debug().Bool("restored", store.Authenticated()).Msg("session ready")
	return s, nil
}

// OnLogout registers the host's "go to login" handler. It runs on the goroutine that ended the
// session and must not call back into the store.
func (s *Session) OnLogout(fn func(events.LogoutEvent)) (func(), error) {
	return s.Bus.OnLogout(fn)
}

// Touch forwards user activity to the inactivity timer.
func (s *Session) Touch(a lifecycle.Activity) {
	s.Monitor.Touch(a)
}

func (s *Session) Close() error {
	s.Monitor.Stop()
	if err := s.closeStorage(); err != nil {
		return fmt.Errorf("[session Close] %w", err)
	}
	return nil
}

// Resource returns the typed CRUD wrapper for name, bound to the session's client and cache.
func Resource[T any](s *Session, name resources.Name) *resources.Resource[T] {
	return resources.New[T](name, s.Client, s.Cache)
}
