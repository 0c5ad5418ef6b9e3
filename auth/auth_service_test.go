package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-admin-client/apiclient"
	"github.com/jrsteele09/go-admin-client/auth"
	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/credentials/storagefake"
	"github.com/jrsteele09/go-admin-client/devserver/devservertest"
	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

type testFixture struct {
	backend *devservertest.Backend
	storage *storagefake.FakeStorage
	store   *credentials.Store
	bus     *events.Bus
	service *auth.Service
}

func setup(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		backend: devservertest.Start(t),
		storage: storagefake.NewFakeStorage(),
		bus:     events.New(),
	}
	store, err := credentials.NewStore(context.Background(), f.storage, credentials.WithBus(f.bus))
	require.NoError(t, err)
	client, err := apiclient.New(apiclient.Config{BaseURL: f.backend.URL(), Bus: f.bus}, store)
	require.NoError(t, err)

	f.store = store
	f.service = auth.NewService(client, store, f.bus)
	return f
}

func TestLoginPopulatesStore(t *testing.T) {
	f := setup(t)

	l, err := f.service.Login(context.Background(), devservertest.Email, devservertest.Password)
	require.NoError(t, err)

	rec := f.store.Snapshot()
	require.Equal(t, l.AccessToken, rec.AccessToken)
	require.Equal(t, l.RefreshToken, rec.RefreshToken)
	require.Equal(t, f.backend.User.ID, rec.UserID)
	require.Equal(t, "admin", rec.Role)
	require.False(t, rec.IssuedAt.IsZero())
	require.NotEmpty(t, rec.RequestID)
	require.True(t, f.storage.Has("auth-storage"))
}

func TestLoginFailureLeavesStoreUntouched(t *testing.T) {
	f := setup(t)

	_, err := f.service.Login(context.Background(), devservertest.Email, "Wrong12345")
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	require.Equal(t, credentials.Record{}, f.store.Snapshot())
	require.Zero(t, f.storage.Writes())
}

func TestLoginValidatesInput(t *testing.T) {
	f := setup(t)

	_, err := f.service.Login(context.Background(), "not-an-email", "x")
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
	require.ErrorIs(t, err, auth.EmailInvalidErr)

	_, err = f.service.Login(context.Background(), devservertest.Email, "")
	require.ErrorIs(t, err, auth.PasswordRequiredErr)
}

func TestLogoutClearsAndPublishes(t *testing.T) {
	f := setup(t)
	_, err := f.service.Login(context.Background(), devservertest.Email, devservertest.Password)
	require.NoError(t, err)

	var reasons []events.LogoutReason
	detach, err := f.bus.OnLogout(func(e events.LogoutEvent) { reasons = append(reasons, e.Reason) })
	require.NoError(t, err)
	defer detach()

	require.NoError(t, f.service.Logout(context.Background()))
	require.Equal(t, 1, f.backend.LogoutCalls())
	require.False(t, f.service.Authenticated())
	require.False(t, f.storage.Has("auth-storage"))
	require.Equal(t, []events.LogoutReason{events.ReasonUserLogout}, reasons)
}

func TestLogoutWhenBackendUnreachable(t *testing.T) {
	f := setup(t)
	_, err := f.service.Login(context.Background(), devservertest.Email, devservertest.Password)
	require.NoError(t, err)
	f.backend.HTTP.Close()

	require.NoError(t, f.service.Logout(context.Background()))
	require.False(t, f.service.Authenticated())
}

func TestLogoutAfterRefreshFailurePublishesOnce(t *testing.T) {
	f := setup(t)
	_, err := f.service.Login(context.Background(), devservertest.Email, devservertest.Password)
	require.NoError(t, err)

	var reasons []events.LogoutReason
	detach, err := f.bus.OnLogout(func(e events.LogoutEvent) { reasons = append(reasons, e.Reason) })
	require.NoError(t, err)
	defer detach()

	f.backend.ExpireAccessTokens()
	require.NoError(t, f.backend.RevokeRefreshTokens())

	require.NoError(t, f.service.Logout(context.Background()))
	require.False(t, f.service.Authenticated())
	require.Equal(t, []events.LogoutReason{events.ReasonRefreshFailed}, reasons)
}

func TestLogoutWithoutSessionStillPublishes(t *testing.T) {
	f := setup(t)

	var reasons []events.LogoutReason
	detach, err := f.bus.OnLogout(func(e events.LogoutEvent) { reasons = append(reasons, e.Reason) })
	require.NoError(t, err)
	defer detach()

	require.NoError(t, f.service.Logout(context.Background()))
	require.Zero(t, f.backend.LogoutCalls())
	require.Equal(t, []events.LogoutReason{events.ReasonUserLogout}, reasons)
}

func TestIdentityAndClaims(t *testing.T) {
	f := setup(t)

	_, err := f.service.Identity()
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
	_, err = f.service.Claims()
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)

	_, err = f.service.Login(context.Background(), devservertest.Email, devservertest.Password)
	require.NoError(t, err)

	id, err := f.service.Identity()
	require.NoError(t, err)
	require.Equal(t, auth.Identity{UserID: f.backend.User.ID, Role: "admin"}, id)

	claims, err := f.service.Claims()
	require.NoError(t, err)
	require.Equal(t, f.backend.User.ID, claims.Subject)
	require.Equal(t, "admin", claims.Role)
	require.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	_, err := auth.ParseClaims("not.a.jwt")
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}
