// Package devserver is an in-memory stand-in for the logistics admin API. It issues short-lived
// JWT access tokens and opaque refresh tokens, and serves the resource collections from memory so
// the client can be exercised end to end.
package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/internal/config"
	"github.com/jrsteele09/go-admin-client/token/jwt"
	"github.com/jrsteele09/go-admin-client/token/refresh"
	"github.com/jrsteele09/go-admin-client/users"
)

const tokenIssuer = "logistics-admin-dev"

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.DevServerConfig
	log    zerolog.Logger

	users         users.UserRepo
	refreshTokens *refresh.Manager
	issuer        *jwt.Issuer
	records       *recordStore

	generation   atomic.Int64
	refreshCalls atomic.Int64
	logoutCalls  atomic.Int64

	delayLock    sync.RWMutex
	refreshDelay time.Duration
}

// Repos are the stores backing the server.
type Repos struct {
	Users         users.UserRepo
	RefreshTokens refresh.Repo
}

func New(env string, cfg config.DevServerConfig, repos Repos, logger zerolog.Logger) (*Server, error) {
	if repos.Users == nil || repos.RefreshTokens == nil {
		return nil, fmt.Errorf("[devserver New] user and refresh token repos are required")
	}
	s := &Server{
		env:           env,
		mux:           http.NewServeMux(),
		config:        cfg,
		log:           logger.With().Str("component", "devserver").Logger(),
		users:         repos.Users,
		refreshTokens: refresh.NewManager(repos.RefreshTokens, cfg.GetDevRefreshTokenTTL()),
		issuer:        jwt.NewIssuer(cfg.GetDevSigningSecret(), tokenIssuer, cfg.GetDevAccessTokenTTL()),
		records:       newRecordStore(),
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.log.Debug().Str("method", method).Str("path", path).Msg("route")
	}
}
