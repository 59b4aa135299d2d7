package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sitedock/sitedock/auth"
)

type userIDKey struct{}

// UserIDFromContext returns the authenticated user id placed on the request
// context by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}

// AuthMiddleware enforces bearer-token authentication. Requests without a
// valid token are rejected with 401; on success the user id is placed on the
// request context.
func AuthMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
		})
	}
}
