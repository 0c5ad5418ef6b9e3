package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/credentials/filestore"
	"github.com/jrsteele09/go-admin-client/credentials/redisstore"
	"github.com/jrsteele09/go-admin-client/credentials/storagefake"
	"github.com/jrsteele09/go-admin-client/internal/config"
)

// NewStorage opens the durable storage named by the configuration. The returned close function
// releases any connection it holds.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (credentials.Storage, func() error, error) {
	noop := func() error { return nil }

	switch backend := cfg.GetStorageBackend(); backend {
	case config.StorageBackendMemory:
		return storagefake.NewFakeStorage(), noop, nil

	case config.StorageBackendFile:
		var opts []filestore.Option
		if key := cfg.GetStorageSealKey(); key != "" {
			sealer, err := filestore.NewSealerFromHex(key)
			if err != nil {
				return nil, nil, fmt.Errorf("[session NewStorage] %w", err)
			}
			opts = append(opts, filestore.WithSealer(sealer))
		}
		fs, err := filestore.New(cfg.GetStorageDir(), opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("[session NewStorage] %w", err)
		}
		return fs, noop, nil

	case config.StorageBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("[session NewStorage] redis %s: %w", cfg.GetRedisAddr(), err)
		}
		return redisstore.New(rdb, cfg.GetRedisPrefix()), rdb.Close, nil

	default:
		return nil, nil, fmt.Errorf("[session NewStorage] unknown storage backend %q", backend)
	}
}
