package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/service"
	"github.com/google/uuid"
)

type contextKey int

const playerIDKey contextKey = iota

// Auth guards a route group: the bearer token is resolved to the
// player's user id and stored on the request context. Game visibility
// and websocket session binding downstream trust this identity.
func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}

			playerID, err := playerFromToken(authService, token)
			if err != nil {
				log.Printf("auth: rejected token: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), playerIDKey, playerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func playerFromToken(authService *service.AuthService, token string) (uuid.UUID, error) {
	claims, err := authService.ValidateToken(token)
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := (*claims)["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("token carries no subject")
	}
	return uuid.Parse(sub)
}

// GetUserID returns the authenticated player's id from the request
// context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	playerID, ok := ctx.Value(playerIDKey).(uuid.UUID)
	return playerID, ok
}
