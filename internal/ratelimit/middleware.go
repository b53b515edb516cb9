package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hemam-center/hemam/internal/platform/httpx"
)

// KeyFunc derives the limiter identifier from a request. Identifier policy
// (IP, user id, composite) belongs to the caller, not the limiter.
type KeyFunc func(r *http.Request) string

// KeyByIP keys requests by client IP. It expects the RealIP middleware to
// have already normalised RemoteAddr.
func KeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware guards a route subtree with this limiter. Rejected requests get
// 429 with Retry-After; all responses carry the X-RateLimit headers the
// frontend surfaces to users.
func (l *Limiter) Middleware(key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := key(r)
			if identifier == "" {
				// No identifier means no meaningful budget to enforce.
				next.ServeHTTP(w, r)
				return
			}
			allowed := l.Allow(identifier)
			reset := l.ResetTime(identifier)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Max()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(identifier)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				if l.onReject != nil {
					l.onReject()
				}
				retryAfter := time.Until(reset)
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				httpx.ProblemCode(w, http.StatusTooManyRequests, "Too Many Requests",
					"request rate limit exceeded, retry later", "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
