package config

import "time"

const (
	StorageBackendFile   = "file"
	StorageBackendRedis  = "redis"
	StorageBackendMemory = "memory"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetStorageDir() string
	GetStorageSealKey() string
	GetRedisAddr() string
	GetRedisPrefix() string
}

type CacheConfig interface {
	GetCacheSize() int
	GetCacheTTL() time.Duration
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() string {
	return GetEnv("STORAGE_BACKEND", StorageBackendFile)
}

func (Storage) GetStorageDir() string {
	return GetEnv("STORAGE_DIR", "./data")
}

// GetStorageSealKey returns a hex encoded 32 byte key. Empty disables sealing.
func (Storage) GetStorageSealKey() string {
	return GetEnv("STORAGE_SEAL_KEY", "")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "admin-client")
}

type Cache struct{}

var _ CacheConfig = Cache{}

func (Cache) GetCacheSize() int {
	return GetEnvInt("CACHE_SIZE", 512)
}

func (Cache) GetCacheTTL() time.Duration {
	return GetEnvDuration("CACHE_TTL", 5*time.Minute)
}
