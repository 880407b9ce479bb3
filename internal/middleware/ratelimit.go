package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"clinic-booking-api/internal/ratelimit"
)

// KeyFunc derives the rate-limiting identity from a request. The
// default uses the remote address, which is accurate for single-hop
// deployments; proxied deployments should substitute a header-derived
// key.
type KeyFunc func(*http.Request) string

// RemoteHostKey strips the port from RemoteAddr.
func RemoteHostKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Throttle applies the per-client request limiter to the wrapped
// handler.
func Throttle(t *ratelimit.Throttle, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.Allow(key(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
