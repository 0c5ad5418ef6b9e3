// Package devservertest starts a development backend for tests.
package devservertest

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-admin-client/devserver"
	"github.com/jrsteele09/go-admin-client/internal/config"
	refreshrepofake "github.com/jrsteele09/go-admin-client/token/refresh/repofake"
	"github.com/jrsteele09/go-admin-client/users"
	fakeuserrepo "github.com/jrsteele09/go-admin-client/users/repofake"
)

const (
	Email    = "admin@logistics.test"
	Password = "Password123"
)

// Backend is a running development backend with one admin account.
type Backend struct {
	*devserver.Server
	HTTP *httptest.Server
	User *users.User
}

func (b *Backend) URL() string {
	return b.HTTP.URL
}

func Start(t *testing.T) *Backend {
	t.Helper()

	srv, err := devserver.New("TEST", config.DevServer{}, devserver.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}, zerolog.Nop())
	require.NoError(t, err)

	u, err := srv.AddUser(Email, Password, users.RoleAdmin)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &Backend{Server: srv, HTTP: ts, User: u}
}
