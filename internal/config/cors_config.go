package config

import (
	"strings"
	"time"
)

type DevServerConfig interface {
	CorsConfig
	GetDevAccessTokenTTL() time.Duration
	GetDevRefreshTokenTTL() time.Duration
	GetDevSigningSecret() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

type DevServer struct{}

var _ DevServerConfig = DevServer{}

func (DevServer) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range strings.Split(GetEnv("DEV_ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}

func (DevServer) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE"
}

func (DevServer) GetAllowedHeaders() string {
	return "Content-Type, Authorization, X-Request-Id"
}

func (DevServer) GetDevAccessTokenTTL() time.Duration {
	return GetEnvDuration("DEV_ACCESS_TOKEN_TTL", 15*time.Minute)
}

func (DevServer) GetDevRefreshTokenTTL() time.Duration {
	return GetEnvDuration("DEV_REFRESH_TOKEN_TTL", 7*24*time.Hour)
}

func (DevServer) GetDevSigningSecret() string {
	return GetEnv("DEV_SIGNING_SECRET", "dev-only-signing-secret")
}
