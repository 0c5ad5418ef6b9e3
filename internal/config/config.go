package config

type Config interface {
	EnvConfig
	SessionConfig
	StorageConfig
	CacheConfig
	DevServerConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
	Storage
	Cache
	DevServer
}

func New() Config {
	return mainConfig{}
}
