// Package refresh makes sure a session runs at most one token refresh at a time.
//
// Requests that hit a 401 while a refresh is already running do not call the backend; they wait
// for that refresh and receive its outcome.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

// Func exchanges a refresh token for a new access token. It is a function type so the HTTP
// client can hand in its own endpoint call without an import cycle.
type Func func(ctx context.Context, refreshToken string) (string, error)

// TokenStore is the part of the credential store the coordinator needs.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SaveToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type result struct {
	token string
	err   error
}

// waiter is one suspended caller. done is buffered so settling never blocks on a caller that
// already gave up.
type waiter struct {
	done chan result
}

type Coordinator struct {
	mu         sync.Mutex
	inProgress bool
	waiters    []*waiter

	refresh Func
	store   TokenStore
	bus     *events.Bus
	log     zerolog.Logger
	timeout time.Duration
	calls   int
}

const defaultTimeout = 30 * time.Second

type Option func(*Coordinator)

func WithBus(b *events.Bus) Option {
	return func(c *Coordinator) { c.bus = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithTimeout bounds a single refresh call. The call outlives the caller that started it, so
// this is the only deadline it has.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewCoordinator(refresh Func, store TokenStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		refresh: refresh,
		store:   store,
		log:     zerolog.Nop(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh returns a fresh access token. staleToken is the token the failed request carried;
// when the store already holds a different one, another refresh has settled in the meantime and
// that token is returned without a network call.
func (c *Coordinator) Refresh(ctx context.Context, staleToken string) (string, error) {
	c.mu.Lock()
	if c.inProgress {
		w := &waiter{done: make(chan result, 1)}
		c.waiters = append(c.waiters, w)
		queued := len(c.waiters)
		c.mu.Unlock()

		c.log.Debug().Int("queued", queued).Msg("waiting for in-flight refresh")
		select {
		case r := <-w.done:
			return r.token, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	current := c.store.AccessToken()
	if current != "" && current != staleToken {
		c.mu.Unlock()
		return current, nil
	}
	if current == "" && staleToken != "" {
		// The session this request belonged to has already ended.
		c.mu.Unlock()
		return "", fmt.Errorf("[refresh Refresh] %w", errors.ErrNotAuthenticated)
	}

	c.inProgress = true
	c.calls++
	c.mu.Unlock()

	// One caller giving up must not fail everyone queued behind it.
	token, err := c.run(context.WithoutCancel(ctx))

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inProgress = false
	c.mu.Unlock()

	for _, w := range waiters {
		w.done <- result{token: token, err: err}
	}
	c.log.Debug().Int("waiters", len(waiters)).Bool("ok", err == nil).Msg("refresh settled")
	return token, err
}

// InProgress reports whether a refresh call is outstanding.
func (c *Coordinator) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress
}

// Pending is the number of callers currently waiting on the in-flight refresh.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Calls is the number of refresh calls issued so far.
func (c *Coordinator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Coordinator) run(ctx context.Context) (string, error) {
	refreshToken := c.store.RefreshToken()
	if refreshToken == "" {
		return "", c.fail(ctx, errors.ErrNoRefreshToken)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	token, err := c.refresh(callCtx, refreshToken)
	cancel()
	if err == nil && token == "" {
		err = fmt.Errorf("%w: empty access token", errors.ErrInvalidToken)
	}
	if err != nil {
		return "", c.fail(ctx, err)
	}

	if err := c.store.SaveToken(ctx, token); err != nil {
		// The new token is in memory and usable; only its durable copy is missing.
		c.log.Warn().Err(err).Msg("refreshed token not persisted")
	}
	c.log.Info().Msg("access token refreshed")
	return token, nil
}

// fail ends the session: the store is cleared and the host is told to show the login screen.
func (c *Coordinator) fail(ctx context.Context, cause error) error {
	err := fmt.Errorf("%w: %w", errors.ErrRefreshFailed, cause)
	c.log.Warn().Err(cause).Msg("refresh failed, logging out")
	if clearErr := c.store.Clear(ctx); clearErr != nil {
		c.log.Error().Err(clearErr).Msg("failed to clear credentials after refresh failure")
	}
	c.bus.PublishLogout(events.LogoutEvent{Reason: events.ReasonRefreshFailed, Err: err, At: time.Now()})
	return err
}
