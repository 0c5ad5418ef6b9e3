package credentials

import "context"

// Storage is the durable side of the store: a namespaced key/value area that survives process
// restarts. Load returns errors.ErrNotFound when the key is absent.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// CacheResetter drops all cached server data. The request cache satisfies it.
type CacheResetter interface {
	Reset()
}
