package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/auth"
	httpHandlers "github.com/codeduel/match-core/internal/modules/gateway/http"
)

// Context key types to avoid collisions
type contextKey string

const (
	// PlayerIDKey is the context key under which JWTAuth stores the
	// authenticated player's ID.
	PlayerIDKey contextKey = "player_id"
	tokenTypeKey contextKey = "token_type"
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth(jwtManager *auth.JWTManager, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("missing Authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.Render(w, r, httpHandlers.NewErrorResponse("Authorization header required"))
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				logger.Debug("invalid Authorization header format")
				render.Status(r, http.StatusUnauthorized)
				render.Render(w, r, httpHandlers.NewErrorResponse("invalid authorization format"))
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				logger.Debug("empty token in Authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.Render(w, r, httpHandlers.NewErrorResponse("token required"))
				return
			}

			claims, err := jwtManager.ValidateAppToken(tokenString)
			if err != nil {
				logger.WithFields(logrus.Fields{"error": err}).Debug("invalid JWT token")
				render.Status(r, http.StatusUnauthorized)
				render.Render(w, r, httpHandlers.NewErrorResponse("invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), PlayerIDKey, claims.PlayerID)
			ctx = context.WithValue(ctx, tokenTypeKey, claims.TokenType)

			logger.WithFields(logrus.Fields{
				"player_id": claims.PlayerID,
				"path":      r.URL.Path,
			}).Debug("player authenticated via JWT")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
