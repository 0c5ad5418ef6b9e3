package devserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-admin-client/token/jwt"
)

type ContextKey string

const ContextKeyClaims ContextKey = "claims"

// RequireAuth validates the Bearer access token. Tokens minted before the last
// ExpireAccessTokens call are rejected like expired ones.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := s.issuer.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if claims.Generation < s.generation.Load() {
				writeError(w, http.StatusUnauthorized, "token expired")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

func claimsFromContext(ctx context.Context) *jwt.AccessClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*jwt.AccessClaims)
	return claims
}
