// Package lifecycle ends idle or over-age sessions.
//
// The Monitor runs two independent timers. The inactivity timer restarts on every user activity;
// the expiration timer runs a fixed budget from the moment the access token was last saved and
// restarts only when the token changes. Whichever fires first clears the credentials and
// publishes a logout event.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/events"
)

const (
	DefaultInactivityTimeout = time.Hour
	DefaultTokenLifetime     = time.Hour
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Activity is a user input that proves the session is being used.
type Activity string

const (
	PointerMove Activity = "pointer_move"
	KeyPress    Activity = "key_press"
	Scroll      Activity = "scroll"
	Click       Activity = "click"
)

func (a Activity) Valid() bool {
	switch a {
	case PointerMove, KeyPress, Scroll, Click:
		return true
	}
	return false
}

// TokenStore is the part of the credential store the monitor needs.
type TokenStore interface {
	AccessToken() string
	IssuedAt() time.Time
	Clear(ctx context.Context) error
}

// timer is one scheduled logout. gen identifies the arming; a callback whose gen is no longer
// current was superseded and does nothing.
type timer struct {
	t   *time.Timer
	gen uint64
}

func (t *timer) stop() {
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.gen++
}

type Monitor struct {
	mu         sync.Mutex
	running    bool
	inactivity timer
	expiry     timer
	lastActive time.Time
	detach     func()

	inactivityTimeout time.Duration
	tokenLifetime     time.Duration
	store             TokenStore
	bus               *events.Bus
	log               zerolog.Logger
}

type Option func(*Monitor)

func WithInactivityTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.inactivityTimeout = d }
}

func WithTokenLifetime(d time.Duration) Option {
	return func(m *Monitor) { m.tokenLifetime = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

func NewMonitor(store TokenStore, bus *events.Bus, opts ...Option) *Monitor {
	m := &Monitor{
		inactivityTimeout: DefaultInactivityTimeout,
		tokenLifetime:     DefaultTokenLifetime,
		store:             store,
		bus:               bus,
		log:               zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start arms both timers for the current token and follows token changes from then on. A token
// that is already older than its lifetime expires right away.
func (m *Monitor) Start() error {
	if m.Running() {
		return nil
	}
	// Subscribing takes the bus lock, which is held while handlers run; never do it under mu.
	detach, err := m.bus.OnTokenChanged(m.onTokenChanged)
	if err != nil {
		return fmt.Errorf("[lifecycle Start] %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		detach()
		return nil
	}
	m.detach = detach
	m.running = true

	if m.store.AccessToken() != "" {
		m.armInactivity()
		m.armExpiry(m.store.IssuedAt())
	}
	return nil
}

// Stop cancels both timers and stops following token changes. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	m.inactivity.stop()
	m.expiry.stop()
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
}

// Touch records user activity and restarts the inactivity countdown. It is ignored while no
// session is being monitored.
func (m *Monitor) Touch(a Activity) {
	if !a.Valid() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.inactivity.t == nil {
		return
	}
	m.armInactivity()
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastActivity is when the inactivity countdown last restarted.
func (m *Monitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

// Armed reports which timers are currently scheduled.
func (m *Monitor) Armed() (inactivity, expiry bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inactivity.t != nil, m.expiry.t != nil
}

func (m *Monitor) onTokenChanged(e events.TokenChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if e.Token == "" {
		m.inactivity.stop()
		m.expiry.stop()
		return
	}
	if m.inactivity.t == nil {
		m.armInactivity()
	}
	m.armExpiry(e.IssuedAt)
}

// armInactivity must be called with mu held.
func (m *Monitor) armInactivity() {
	m.inactivity.stop()
	m.lastActive = NowTimeFunc()
	gen := m.inactivity.gen
	m.inactivity.t = time.AfterFunc(m.inactivityTimeout, func() {
		m.fire(&m.inactivity, gen, events.ReasonInactivity)
	})
}

// armExpiry must be called with mu held.
func (m *Monitor) armExpiry(issuedAt time.Time) {
	m.expiry.stop()
	remaining := m.tokenLifetime
	if !issuedAt.IsZero() {
		remaining = issuedAt.Add(m.tokenLifetime).Sub(NowTimeFunc())
	}
	gen := m.expiry.gen
	m.expiry.t = time.AfterFunc(max(remaining, 0), func() {
		m.fire(&m.expiry, gen, events.ReasonTokenExpired)
	})
}

func (m *Monitor) fire(t *timer, gen uint64, reason events.LogoutReason) {
	m.mu.Lock()
	if !m.running || t.gen != gen {
		m.mu.Unlock()
		return
	}
	m.inactivity.stop()
	m.expiry.stop()
	m.mu.Unlock()

	m.log.Info().Str("reason", string(reason)).Msg("session ended")
	ctx := context.Background()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("failed to clear credentials")
	}
	m.bus.PublishLogout(events.LogoutEvent{Reason: reason, At: NowTimeFunc()})
}
