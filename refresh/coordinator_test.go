package refresh_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/credentials/storagefake"
	"github.com/jrsteele09/go-admin-client/events"
	apperrors "github.com/jrsteele09/go-admin-client/internal/errors"
	"github.com/jrsteele09/go-admin-client/refresh"
)

type coordinatorFixture struct {
	store   *credentials.Store
	bus     *events.Bus
	logouts chan events.LogoutEvent
	calls   atomic.Int32
	release chan struct{}
}

func setupCoordinator(t *testing.T, refreshFn func(f *coordinatorFixture, refreshToken string) (string, error)) (*coordinatorFixture, *refresh.Coordinator) {
	t.Helper()

	f := &coordinatorFixture{
		bus:     events.New(),
		logouts: make(chan events.LogoutEvent, 16),
		release: make(chan struct{}),
	}
	store, err := credentials.NewStore(context.Background(), storagefake.NewFakeStorage(), credentials.WithBus(f.bus))
	require.NoError(t, err)
	require.NoError(t, store.SaveLogin(context.Background(), credentials.Login{
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		UserID:       "u1",
		Role:         "admin",
	}))
	f.store = store

	_, err = f.bus.OnLogout(func(e events.LogoutEvent) { f.logouts <- e })
	require.NoError(t, err)

	c := refresh.NewCoordinator(func(ctx context.Context, refreshToken string) (string, error) {
		f.calls.Add(1)
		return refreshFn(f, refreshToken)
	}, store, refresh.WithBus(f.bus))
	return f, c
}

// runConcurrent starts one leader, waits until it is refreshing, then queues n-1 followers
// behind it before letting the refresh finish.
func runConcurrent(t *testing.T, f *coordinatorFixture, c *refresh.Coordinator, n int) ([]string, []error) {
	t.Helper()

	tokens := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)

	call := func(i int) {
		defer wg.Done()
		tokens[i], errs[i] = c.Refresh(context.Background(), "old-access")
	}

	go call(0)
	require.Eventually(t, c.InProgress, time.Second, time.Millisecond)
	for i := 1; i < n; i++ {
		go call(i)
	}
	require.Eventually(t, func() bool { return c.Pending() == n-1 }, time.Second, time.Millisecond)

	close(f.release)
	wg.Wait()
	return tokens, errs
}

func TestSingleRefreshInFlight(t *testing.T) {
	f, c := setupCoordinator(t, func(f *coordinatorFixture, refreshToken string) (string, error) {
		<-f.release
		if refreshToken != "refresh-1" {
			return "", errors.New("unexpected refresh token")
		}
		return "new-access", nil
	})

	const n = 16
	tokens, errs := runConcurrent(t, f, c, n)

	require.Equal(t, int32(1), f.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "new-access", tokens[i])
	}
	require.Equal(t, "new-access", f.store.AccessToken())
	require.False(t, c.InProgress())
	require.Equal(t, 0, c.Pending())
	require.Len(t, f.logouts, 0)
}

func TestRefreshFailureRejectsEveryWaiter(t *testing.T) {
	boom := errors.New("refresh token revoked")
	f, c := setupCoordinator(t, func(f *coordinatorFixture, _ string) (string, error) {
		<-f.release
		return "", boom
	})

	const n = 8
	_, errs := runConcurrent(t, f, c, n)

	require.Equal(t, int32(1), f.calls.Load())
	for i := 0; i < n; i++ {
		require.ErrorIs(t, errs[i], apperrors.ErrRefreshFailed)
		require.ErrorIs(t, errs[i], boom)
	}

	require.Equal(t, credentials.Record{}, f.store.Snapshot())
	require.Len(t, f.logouts, 1)
	e := <-f.logouts
	require.Equal(t, events.ReasonRefreshFailed, e.Reason)
	require.False(t, c.InProgress())
}

func TestStaleTokenSkipsNetwork(t *testing.T) {
	f, c := setupCoordinator(t, func(*coordinatorFixture, string) (string, error) {
		return "never", nil
	})

	token, err := c.Refresh(context.Background(), "an-older-token")
	require.NoError(t, err)
	require.Equal(t, "old-access", token)
	require.Equal(t, int32(0), f.calls.Load())
}

func TestMissingRefreshTokenLogsOut(t *testing.T) {
	f, c := setupCoordinator(t, func(*coordinatorFixture, string) (string, error) {
		return "never", nil
	})
	require.NoError(t, f.store.SaveRefreshToken(context.Background(), ""))

	_, err := c.Refresh(context.Background(), "old-access")
	require.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.Equal(t, int32(0), f.calls.Load())
	require.False(t, f.store.Authenticated())
	require.Len(t, f.logouts, 1)
}

func TestEmptyTokenFromBackendIsFailure(t *testing.T) {
	f, c := setupCoordinator(t, func(*coordinatorFixture, string) (string, error) {
		return "", nil
	})

	_, err := c.Refresh(context.Background(), "old-access")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.False(t, f.store.Authenticated())
}

func TestCancelledWaiterDoesNotAffectOthers(t *testing.T) {
	f, c := setupCoordinator(t, func(f *coordinatorFixture, _ string) (string, error) {
		<-f.release
		return "new-access", nil
	})

	leader := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background(), "old-access")
		leader <- err
	}()
	require.Eventually(t, c.InProgress, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	quitter := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx, "old-access")
		quitter <- err
	}()
	require.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-quitter, context.Canceled)

	close(f.release)
	assert.NoError(t, <-leader)
	require.Equal(t, "new-access", f.store.AccessToken())
}

func TestSequentialRefreshesEachCallBackend(t *testing.T) {
	var n atomic.Int32
	f, c := setupCoordinator(t, func(*coordinatorFixture, string) (string, error) {
		return "access-" + string(rune('a'+n.Add(1)-1)), nil
	})

	first, err := c.Refresh(context.Background(), "old-access")
	require.NoError(t, err)
	require.Equal(t, "access-a", first)

	second, err := c.Refresh(context.Background(), first)
	require.NoError(t, err)
	require.Equal(t, "access-b", second)
	require.Equal(t, int32(2), f.calls.Load())
	require.Equal(t, 2, c.Calls())
}

func TestLateUnauthorizedAfterFailedRefreshDoesNotLogOutTwice(t *testing.T) {
	f, c := setupCoordinator(t, func(*coordinatorFixture, string) (string, error) {
		return "", errors.New("refresh token revoked")
	})

	_, err := c.Refresh(context.Background(), "old-access")
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.False(t, f.store.Authenticated())

	// A request that left with the old token comes back with its own 401.
	_, err = c.Refresh(context.Background(), "old-access")
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.NotErrorIs(t, err, apperrors.ErrRefreshFailed)

	require.Equal(t, int32(1), f.calls.Load())
	require.Len(t, f.logouts, 1)
}

func TestRefreshCallIsBoundedByTimeout(t *testing.T) {
	bus := events.New()
	store, err := credentials.NewStore(context.Background(), storagefake.NewFakeStorage(), credentials.WithBus(bus))
	require.NoError(t, err)
	require.NoError(t, store.SaveLogin(context.Background(), credentials.Login{
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		UserID:       "u1",
		Role:         "admin",
	}))

	c := refresh.NewCoordinator(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, store, refresh.WithBus(bus), refresh.WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err = c.Refresh(context.Background(), "old-access")
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
	require.False(t, store.Authenticated())
	require.False(t, c.InProgress())
}

func TestCallerDeadlineDoesNotCutRefreshShort(t *testing.T) {
	f, c := setupCoordinator(t, func(f *coordinatorFixture, _ string) (string, error) {
		<-f.release
		return "new-access", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx, "old-access")
		done <- err
	}()
	<-ctx.Done()
	close(f.release)

	require.NoError(t, <-done)
	require.Equal(t, "new-access", f.store.AccessToken())
}
