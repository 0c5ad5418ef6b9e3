package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a token pair. It does not touch the credential store.
func (c *Client) Login(ctx context.Context, email, password string) (*credentials.Login, error) {
	var out credentials.Login
	err := c.PostJSON(ctx, RouteLogin, loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized ||
			apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %w", errors.ErrInvalidCredentials, apiErr)
		}
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("[apiclient Login] %w: response without access token", errors.ErrInvalidToken)
	}
	return &out, nil
}

// Refresh calls the refresh endpoint directly. Most callers want the coordinator instead, which
// stores the result and shares it between concurrent requests.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out refreshResponse
	if err := c.PostJSON(ctx, RouteRefresh, refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Logout tells the backend to end the session. Local state is the caller's business.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Do(ctx, &Envelope{Method: http.MethodGet, Path: RouteLogout})
	return err
}

func (c *Client) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	return c.Refresh(ctx, refreshToken)
}

// decode fills out from a JSON body. A nil out or an empty body is not an error.
func decode(resp *Response, out any) error {
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("[apiclient] decode response: %w", err)
	}
	return nil
}
