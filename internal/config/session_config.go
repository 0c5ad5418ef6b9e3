package config

import "time"

// StorageKey is the durable entry holding the persisted session.
const StorageKey = "auth-storage"

type SessionConfig interface {
	GetInactivityTimeout() time.Duration
	GetTokenLifetime() time.Duration
	GetRequestTimeout() time.Duration
	GetStorageKey() string
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetInactivityTimeout() time.Duration {
	return GetEnvDuration("SESSION_INACTIVITY_TIMEOUT", 1*time.Hour)
}

func (Session) GetTokenLifetime() time.Duration {
	return GetEnvDuration("SESSION_TOKEN_LIFETIME", 1*time.Hour)
}

func (Session) GetRequestTimeout() time.Duration {
	return GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
}

func (Session) GetStorageKey() string {
	return StorageKey
}
