package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := c.Do(ctx, &Envelope{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, &Envelope{Method: http.MethodDelete, Path: path})
	return err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	env := &Envelope{Method: method, Path: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("[apiclient] encode %s %s: %w", method, path, err)
		}
		env.Body = body
		env.ContentType = contentTypeJSON
	}
	resp, err := c.Do(ctx, env)
	if err != nil {
		return err
	}
	return decode(resp, out)
}
