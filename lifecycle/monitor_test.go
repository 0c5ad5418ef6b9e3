package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/credentials/storagefake"
	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/lifecycle"
)

type logoutRecorder struct {
	mu      sync.Mutex
	reasons []events.LogoutReason
}

func (r *logoutRecorder) record(e events.LogoutEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, e.Reason)
}

func (r *logoutRecorder) get() []events.LogoutReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.LogoutReason(nil), r.reasons...)
}

type fixture struct {
	store   *credentials.Store
	bus     *events.Bus
	logouts *logoutRecorder
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{bus: events.New(), logouts: &logoutRecorder{}}
	store, err := credentials.NewStore(context.Background(), storagefake.NewFakeStorage(), credentials.WithBus(f.bus))
	require.NoError(t, err)
	f.store = store

	detach, err := f.bus.OnLogout(f.logouts.record)
	require.NoError(t, err)
	t.Cleanup(detach)
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.SaveLogin(context.Background(), credentials.Login{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		UserID:       "user-1",
		Role:         "admin",
	}))
}

func (f *fixture) start(t *testing.T, opts ...lifecycle.Option) *lifecycle.Monitor {
	t.Helper()
	m := lifecycle.NewMonitor(f.store, f.bus, opts...)
	require.NoError(t, m.Start())
	t.Cleanup(m.Stop)
	return m
}

func TestActivityPostponesInactivityLogout(t *testing.T) {
	f := setup(t)
	f.login(t)
	m := f.start(t,
		lifecycle.WithInactivityTimeout(150*time.Millisecond),
		lifecycle.WithTokenLifetime(time.Hour),
	)

	activities := []lifecycle.Activity{lifecycle.PointerMove, lifecycle.KeyPress, lifecycle.Scroll, lifecycle.Click}
	for i := 0; i < 8; i++ {
		time.Sleep(50 * time.Millisecond)
		m.Touch(activities[i%len(activities)])
	}
	require.True(t, f.store.Authenticated())
	require.Empty(t, f.logouts.get())

	require.Eventually(t, func() bool { return !f.store.Authenticated() }, time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, []events.LogoutReason{events.ReasonInactivity}, f.logouts.get())
}

func TestUnknownActivityDoesNotReset(t *testing.T) {
	f := setup(t)
	f.login(t)
	m := f.start(t, lifecycle.WithInactivityTimeout(time.Hour))

	before := m.LastActivity()
	time.Sleep(5 * time.Millisecond)
	m.Touch(lifecycle.Activity("resize"))
	require.Equal(t, before, m.LastActivity())

	m.Touch(lifecycle.Click)
	require.True(t, m.LastActivity().After(before))
}

func TestNewTokenRestartsExpiration(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.start(t,
		lifecycle.WithInactivityTimeout(time.Hour),
		lifecycle.WithTokenLifetime(200*time.Millisecond),
	)

	time.Sleep(120 * time.Millisecond)
	require.NoError(t, f.store.SaveToken(context.Background(), "access-2"))

	// The first token's deadline passes without effect.
	time.Sleep(130 * time.Millisecond)
	require.True(t, f.store.Authenticated())
	require.Empty(t, f.logouts.get())

	require.Eventually(t, func() bool { return !f.store.Authenticated() }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, []events.LogoutReason{events.ReasonTokenExpired}, f.logouts.get())
}

func TestStaleTokenExpiresOnStart(t *testing.T) {
	f := setup(t)

	prev := credentials.NowTimeFunc
	credentials.NowTimeFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	f.login(t)
	credentials.NowTimeFunc = prev

	f.start(t, lifecycle.WithTokenLifetime(time.Hour))

	require.Eventually(t, func() bool { return !f.store.Authenticated() }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(f.logouts.get()) == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, events.ReasonTokenExpired, f.logouts.get()[0])
}

func TestStopCancelsTimers(t *testing.T) {
	f := setup(t)
	f.login(t)
	m := f.start(t,
		lifecycle.WithInactivityTimeout(50*time.Millisecond),
		lifecycle.WithTokenLifetime(50*time.Millisecond),
	)

	m.Stop()
	m.Stop()
	require.False(t, m.Running())

	time.Sleep(150 * time.Millisecond)
	require.True(t, f.store.Authenticated())
	require.Empty(t, f.logouts.get())

	// A stopped monitor no longer follows token changes.
	require.NoError(t, f.store.SaveToken(context.Background(), "access-2"))
	inactivity, expiry := m.Armed()
	require.False(t, inactivity)
	require.False(t, expiry)
}

func TestClearedTokenDisarmsTimers(t *testing.T) {
	f := setup(t)
	f.login(t)
	m := f.start(t)

	inactivity, expiry := m.Armed()
	require.True(t, inactivity)
	require.True(t, expiry)

	require.NoError(t, f.store.Clear(context.Background()))
	inactivity, expiry = m.Armed()
	require.False(t, inactivity)
	require.False(t, expiry)
}

func TestLoginAfterStartArmsTimers(t *testing.T) {
	f := setup(t)
	m := f.start(t)

	m.Touch(lifecycle.Click)
	inactivity, expiry := m.Armed()
	require.False(t, inactivity)
	require.False(t, expiry)

	f.login(t)
	inactivity, expiry = m.Armed()
	require.True(t, inactivity)
	require.True(t, expiry)
}
