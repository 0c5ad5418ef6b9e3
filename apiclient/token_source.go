package apiclient

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-admin-client/internal/errors"
)

type tokenSource struct {
	client   *Client
	lifetime time.Duration
}

// TokenSource adapts the session to oauth2.TokenSource for code that expects one. A token past
// its lifetime is refreshed through the coordinator, so it shares any in-flight refresh.
func (c *Client) TokenSource(lifetime time.Duration) oauth2.TokenSource {
	return tokenSource{client: c, lifetime: lifetime}
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	t := ts.client.store.Token(ts.lifetime)
	if t.AccessToken == "" {
		return nil, errors.ErrNotAuthenticated
	}
	if t.Valid() {
		return t, nil
	}
	if _, err := ts.client.coordinator.Refresh(context.Background(), t.AccessToken); err != nil {
		return nil, err
	}
	return ts.client.store.Token(ts.lifetime), nil
}
