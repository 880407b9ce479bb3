package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
)

type ctxKey string

const userKey ctxKey = "user"

// UserFrom returns the authenticated user placed in the context by Auth.
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

// Auth validates the bearer token and resolves it to a live user before
// the wrapped handler runs.
func Auth(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				unauthorized(w)
				return
			}
			u, err := gate.ValidateToken(r.Context(), raw)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": auth.ErrUnauthenticated.Error(),
	})
}
