package api

import (
	"net"
	"net/http"

	"bookshelf/src/internal/ratelimit"
	"bookshelf/src/internal/response"
)

// limitClients rejects requests with 429 once a client IP exceeds its
// bucket. It runs after middleware.RealIP, so RemoteAddr is the client.
func (s *Server) limitClients(limiter *ratelimit.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !limiter.Allow(key) {
				s.logger.Warn("client rate limit exceeded", "ip", key, "path", r.URL.Path)
				response.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
