// Package resources is the CRUD layer over the admin API: one typed wrapper per collection,
// reads served through the request cache, mutations invalidating it.
package resources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jrsteele09/go-admin-client/apiclient"
	"github.com/jrsteele09/go-admin-client/cache"
)

// API is the subset of the HTTP client the wrappers use.
type API interface {
	GetJSON(ctx context.Context, path string, query map[string]string, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
	PutJSON(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string) error
	PostMultipart(ctx context.Context, path string, form apiclient.Form, out any) error
	PutMultipart(ctx context.Context, path string, form apiclient.Form, out any) error
}

var _ API = (*apiclient.Client)(nil)

type Resource[T any] struct {
	name  Name
	api   API
	cache *cache.Cache
}

func New[T any](name Name, api API, c *cache.Cache) *Resource[T] {
	return &Resource[T]{name: name, api: api, cache: c}
}

func (r *Resource[T]) Name() Name {
	return r.name
}

// List fetches the collection; query carries paging and filters as the backend expects them.
func (r *Resource[T]) List(ctx context.Context, query map[string]string) ([]T, error) {
	v, err := r.cache.Fetch(ctx, typedKey[[]T](listKey(r.name, query)), func(ctx context.Context) (any, error) {
		var out []T
		if err := r.api.GetJSON(ctx, r.name.Path(), query, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("[resources %s List] %w", r.name, err)
	}
	out, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("[resources %s List] cached %T is not %T", r.name, v, out)
	}
	return out, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	v, err := r.cache.Fetch(ctx, typedKey[T](itemKey(r.name, id)), func(ctx context.Context) (any, error) {
		var out T
		if err := r.api.GetJSON(ctx, r.itemPath(id), nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("[resources %s Get] %w", r.name, err)
	}
	out, ok := v.(T)
	if !ok {
		return out, fmt.Errorf("[resources %s Get] cached %T is not %T", r.name, v, out)
	}
	return out, nil
}

func (r *Resource[T]) Create(ctx context.Context, in T) (T, error) {
	var out T
	err := r.api.PostJSON(ctx, r.name.Path(), in, &out)
	return r.afterMutation(out, err, "Create")
}

func (r *Resource[T]) Update(ctx context.Context, id string, in T) (T, error) {
	var out T
	err := r.api.PutJSON(ctx, r.itemPath(id), in, &out)
	return r.afterMutation(out, err, "Update")
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	err := r.api.Delete(ctx, r.itemPath(id))
	_, err = r.afterMutation(*new(T), err, "Delete")
	return err
}

// CreateWithFiles posts a multipart form; only file-bearing resources accept it.
func (r *Resource[T]) CreateWithFiles(ctx context.Context, form apiclient.Form) (T, error) {
	var out T
	if !r.name.Multipart() {
		return out, fmt.Errorf("[resources %s CreateWithFiles] resource does not take files", r.name)
	}
	err := r.api.PostMultipart(ctx, r.name.Path(), form, &out)
	return r.afterMutation(out, err, "CreateWithFiles")
}

func (r *Resource[T]) UpdateWithFiles(ctx context.Context, id string, form apiclient.Form) (T, error) {
	var out T
	if !r.name.Multipart() {
		return out, fmt.Errorf("[resources %s UpdateWithFiles] resource does not take files", r.name)
	}
	err := r.api.PutMultipart(ctx, r.itemPath(id), form, &out)
	return r.afterMutation(out, err, "UpdateWithFiles")
}

func (r *Resource[T]) afterMutation(out T, err error, op string) (T, error) {
	if err != nil {
		return out, fmt.Errorf("[resources %s %s] %w", r.name, op, err)
	}
	r.cache.Invalidate(string(r.name))
	return out, nil
}

func (r *Resource[T]) itemPath(id string) string {
	return r.name.Path() + "/" + url.PathEscape(id)
}

// typedKey scopes a cache key to the Go type decoded into, so two views of one collection do
// not read each other's entries. Invalidating the resource name still drops both.
func typedKey[V any](key string) string {
	return fmt.Sprintf("%s|%T", key, *new(V))
}

func itemKey(name Name, id string) string {
	return string(name) + "/" + id
}

// listKey is stable for equal queries regardless of map order.
func listKey(name Name, query map[string]string) string {
	if len(query) == 0 {
		return string(name)
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(query[k]))
	}
	return string(name) + "?" + strings.Join(parts, "&")
}
