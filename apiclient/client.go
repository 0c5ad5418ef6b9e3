// Package apiclient talks to the admin REST API on behalf of one session.
//
// Every call carries the session's bearer token. A 401 on an authenticated call runs the
// refresh protocol once and replays the request with the new token; anything else is returned
// to the caller unchanged.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/refresh"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBodyBytes  = 8 << 20
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Bus            *events.Bus
	Logger         *zerolog.Logger
}

type Client struct {
	baseURL     string
	httpClient  HTTPDoer
	store       *credentials.Store
	coordinator *refresh.Coordinator
	log         zerolog.Logger
}

// Envelope is one logical request. Body is kept as bytes so the request can be replayed after
// a refresh.
type Envelope struct {
	Method      string
	Path        string
	Query       map[string]string
	Body        []byte
	ContentType string
	Header      http.Header

	retried bool
}

// Retried reports whether the envelope already went through a refresh-and-retry.
func (e *Envelope) Retried() bool {
	return e.retried
}

// Response is a fully read backend answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func New(cfg Config, store *credentials.Store) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("[apiclient New] base url is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[apiclient New] credential store is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "apiclient").Logger()
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
		log:        logger,
	}
	c.coordinator = refresh.NewCoordinator(c.refreshAccessToken, store,
		refresh.WithBus(cfg.Bus),
		refresh.WithLogger(logger),
		refresh.WithTimeout(timeout),
	)
	return c, nil
}

func (c *Client) Store() *credentials.Store {
	return c.store
}

func (c *Client) Coordinator() *refresh.Coordinator {
	return c.coordinator
}

// Do sends env and recovers once from an expired access token.
func (c *Client) Do(ctx context.Context, env *Envelope) (*Response, error) {
	token := c.store.AccessToken()
	resp, err := c.send(ctx, env, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return c.check(env, resp)
	}

	if skipsRecovery(env.Path) || env.retried {
		return nil, newAPIError(env, resp)
	}
	env.retried = true

	newToken, err := c.coordinator.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, env, newToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn().Str("path", env.Path).Msg("request rejected after refresh")
	}
	return c.check(env, resp)
}

func (c *Client) check(env *Envelope, resp *Response) (*Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(env, resp)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, env *Envelope, token string) (*Response, error) {
	req, err := c.buildRequest(ctx, env, token)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", env.Method).Str("path", env.Path).Msg("transport error")
		return nil, fmt.Errorf("[apiclient] %s %s: %w", env.Method, env.Path, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("[apiclient] %s %s: read body: %w", env.Method, env.Path, err)
	}

	c.log.Debug().
		Str("method", env.Method).
		Str("path", env.Path).
		Int("status", httpResp.StatusCode).
		Bool("retried", env.retried).
		Dur("took", time.Since(start)).
		Msg("api call")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, env *Envelope, token string) (*http.Request, error) {
	var body io.Reader
	if env.Body != nil {
		body = bytes.NewReader(env.Body)
	}
	req, err := http.NewRequestWithContext(ctx, env.Method, c.baseURL+env.Path, body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient] build %s %s: %w", env.Method, env.Path, err)
	}

	if len(env.Query) > 0 {
		q := req.URL.Query()
		for k, v := range env.Query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, values := range env.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if env.ContentType != "" {
		req.Header.Set(headerContentType, env.ContentType)
	}
	req.Header.Set(headerAccept, contentTypeJSON)

	if token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	} else {
		req.Header.Del(headerAuthorization)
	}
	if requestID := c.store.RequestID(); requestID != "" {
		req.Header.Set(headerRequestID, requestID)
	}
	return req, nil
}
