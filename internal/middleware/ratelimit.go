package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// RateLimiter throttles requests per client IP using Redis counters,
// so the limit holds across multiple server instances. Counters live
// under "ratelimit:{ip}:{endpoint}" with a TTL of one window.
//
// Only the OAuth endpoints are limited in practice: the rest of the
// API sits behind session auth, and the sign-in redirect is the one
// surface an anonymous client can hammer.
type RateLimiter struct {
	redis          *database.RedisDB
	requestsPerMin int
	window         time.Duration
}

// NewRateLimiter creates a rate limiter allowing requestsPerMin
// requests per window for each IP and endpoint pair.
func NewRateLimiter(redis *database.RedisDB, requestsPerMin int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:          redis,
		requestsPerMin: requestsPerMin,
		window:         window,
	}
}

// Limit returns middleware enforcing the limit for one endpoint group.
// Distinct endpoint names get independent counters.
//
// Responses carry X-RateLimit-Limit and X-RateLimit-Remaining; a
// rejected request gets 429 with Retry-After set to the window length.
// If Redis is unreachable the request is allowed through, since
// blocking sign-ins on a cache outage is worse than briefly losing
// the limit.
func (rl *RateLimiter) Limit(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ExtractClientIP(r)

			count, err := rl.redis.IncrementRateLimit(r.Context(), ip, endpoint, rl.window)
			if err != nil {
				log.Error().Err(err).Str("ip", ip).Msg("Failed to check rate limit")
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(rl.requestsPerMin) {
				log.Warn().
					Str("ip", ip).
					Str("endpoint", endpoint).
					Int64("count", count).
					Msg("Rate limit exceeded")

				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerMin))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))

				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			remaining := rl.requestsPerMin - int(count)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerMin))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			next.ServeHTTP(w, r)
		})
	}
}
