package middleware

import (
	"context"
	"net/http"

	"stickerchart/internal/models"
)

type UserLookup interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// RequireAdmin re-reads the caller's role so a demoted or deleted user loses
// access before their token expires.
func RequireAdmin(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user, err := users.GetUser(r.Context(), identity.UserID)
			if err != nil {
				http.Error(w, "unable to verify admin", http.StatusForbidden)
				return
			}
			if user.Role != models.RoleAdmin || !user.IsActive {
				http.Error(w, "admin privileges required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
