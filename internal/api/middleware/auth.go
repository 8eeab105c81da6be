package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/hvzgame/internal/api/apierr"
	"github.com/mcoot/hvzgame/internal/model"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// TokenParser validates a bearer token and returns the user it was issued to
type TokenParser interface {
	ParseToken(token string) (model.UserID, error)
}

// Auth creates authentication middleware
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			userID, err := parser.ParseToken(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// extractToken reads the bearer token from the Authorization header. Browsers
// cannot set headers on EventSource or WebSocket requests, so stream
// endpoints also accept an access_token query parameter.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

// WithUserID returns a context carrying the authenticated user
func WithUserID(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetUserID returns the authenticated user from the request context
func GetUserID(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(userIDContextKey).(model.UserID)
	return userID, ok && userID != ""
}

// MustGetUserID returns the authenticated user or panics
func MustGetUserID(ctx context.Context) model.UserID {
	userID, ok := GetUserID(ctx)
	if !ok {
		panic("no user in context - auth middleware not applied?")
	}
	return userID
}
