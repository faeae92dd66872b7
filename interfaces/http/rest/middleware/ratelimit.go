package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"amp/pkg/auth"
)

// RateLimit throttles requests per client IP using a sliding window,
// grounded on the sibling teacher's IPRateLimiter.
func RateLimit(limiter *auth.IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				ip = host
			}
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil || allowed {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
		})
	}
}
