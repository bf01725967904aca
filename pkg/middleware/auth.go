package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sgerasev/hometask/internal/vkauth"
	"github.com/sgerasev/hometask/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated VK user ID
	UserIDKey ContextKey = "user_id"
)

// VKAuth verifies the signed VK launch params carried in the Authorization
// header and puts the trusted user ID into the request context. Handlers
// never read identity from the request body.
func VKAuth(verifier *vkauth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, vkauth.ErrMissingAuthHeader) {
					response.Unauthorized(w, "Authorization header required")
					return
				}
				response.Unauthorized(w, "Invalid launch params")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, identity.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the authenticated user ID from the request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
