// Package redisstore keeps credential entries in Redis, for hosts that run several client
// processes against the same session.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-admin-client/credentials"
	"github.com/jrsteele09/go-admin-client/internal/errors"
)

var _ credentials.Storage = (*RedisStore)(nil)

type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func New(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (rs *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := rs.rdb.Get(ctx, rs.key(key)).Bytes()
	if err == redis.Nil {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[redisstore Load] %w", err)
	}
	return data, nil
}

func (rs *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := rs.rdb.Set(ctx, rs.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("[redisstore Save] %w", err)
	}
	return nil
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	if err := rs.rdb.Del(ctx, rs.key(key)).Err(); err != nil {
		return fmt.Errorf("[redisstore Delete] %w", err)
	}
	return nil
}

func (rs *RedisStore) key(key string) string {
	if rs.prefix == "" {
		return key
	}
	return rs.prefix + ":" + key
}
