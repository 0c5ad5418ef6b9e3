// Package events carries session notifications between the core and the host shell.
//
// The core never navigates anywhere itself: it publishes a LogoutEvent and whatever owns the
// screen (a CLI, a UI, a test) decides what "go to the login page" means.
package events

import (
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

const (
	TopicLogout       = "session:logout"
	TopicTokenChanged = "session:token_changed"
)

// LogoutReason says why a session ended.
type LogoutReason string

const (
	ReasonUserLogout    LogoutReason = "user_logout"
	ReasonRefreshFailed LogoutReason = "refresh_failed"
	ReasonInactivity    LogoutReason = "inactivity"
	ReasonTokenExpired  LogoutReason = "token_expired"
)

// LogoutEvent asks the host to leave the authenticated area and show the login entry point.
type LogoutEvent struct {
	Reason LogoutReason
	Err    error
	At     time.Time
}

// TokenChangedEvent is published whenever the stored access token value changes.
// An empty Token means the session was cleared.
type TokenChangedEvent struct {
	Token    string
	IssuedAt time.Time
}

// Bus is a typed facade over an EventBus instance. Handlers run synchronously on the
// publishing goroutine and must not publish on the same Bus.
type Bus struct {
	bus evbus.Bus
}

func New() *Bus {
	return &Bus{bus: evbus.New()}
}

func (b *Bus) PublishLogout(e LogoutEvent) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.bus.Publish(TopicLogout, e)
}

func (b *Bus) PublishTokenChanged(e TokenChangedEvent) {
	if b == nil {
		return
	}
	b.bus.Publish(TopicTokenChanged, e)
}

// OnLogout registers fn and returns a function that detaches it.
func (b *Bus) OnLogout(fn func(LogoutEvent)) (func(), error) {
	var active atomic.Bool
	active.Store(true)
	err := b.bus.Subscribe(TopicLogout, func(e LogoutEvent) {
		if active.Load() {
			fn(e)
		}
	})
	if err != nil {
		return nil, err
	}
	return func() { active.Store(false) }, nil
}

// OnTokenChanged registers fn and returns a function that detaches it.
func (b *Bus) OnTokenChanged(fn func(TokenChangedEvent)) (func(), error) {
	var active atomic.Bool
	active.Store(true)
	err := b.bus.Subscribe(TopicTokenChanged, func(e TokenChangedEvent) {
		if active.Load() {
			fn(e)
		}
	})
	if err != nil {
		return nil, err
	}
	return func() { active.Store(false) }, nil
}
