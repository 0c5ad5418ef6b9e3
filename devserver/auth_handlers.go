package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-admin-client/internal/errors"
)

const maxBodyBytes = 32 << 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"userId"`
	Role         string `json:"role"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed login request")
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := s.users.GetByEmail(req.Email)
		if err != nil || !user.CheckPassword(req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if user.Blocked {
			writeError(w, http.StatusForbidden, "account is blocked")
			return
		}

		accessToken, err := s.issuer.CreateAccessToken(user.ID, string(user.Role), s.generation.Load())
		if err != nil {
			s.log.Error().Err(err).Msg("failed to create access token")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		refreshToken, err := s.refreshTokens.Create(user.ID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to create refresh token")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := s.users.SetLastLogin(user.ID); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
		}

		writeJSON(w, http.StatusOK, loginResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			UserID:       user.ID,
			Role:         string(user.Role),
		})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		if d := s.RefreshDelay(); d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}

		var req refreshRequest
		if err := readJSON(r, &req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		stored, err := s.refreshTokens.Validate(req.RefreshToken)
		if err != nil {
			msg := "invalid refresh token"
			if errors.Is(err, errors.ErrSessionExpired) {
				msg = "refresh token expired"
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}
		user, err := s.users.GetByID(stored.UserID)
		if err != nil || user.Blocked {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}

		accessToken, err := s.issuer.CreateAccessToken(user.ID, string(user.Role), s.generation.Load())
		if err != nil {
			s.log.Error().Err(err).Msg("failed to create access token")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken})
	}
}

// LogoutHandler drops the caller's refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logoutCalls.Add(1)
		if claims := claimsFromContext(r.Context()); claims != nil {
			if err := s.refreshTokens.RevokeUser(claims.Subject); err != nil {
				s.log.Warn().Err(err).Str("user_id", claims.Subject).Msg("failed to revoke refresh token")
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}
