package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// CORS creates CORS middleware for the API.
//
// The SPA is normally served from the same origin as the API, so this
// mainly matters for local development where the frontend dev server
// runs on its own port. Credentials are enabled because authentication
// rides on the session cookie.
//
// Configuration:
//   - Allowed methods: GET, POST, PUT, DELETE, OPTIONS
//   - Allowed headers: Accept, Authorization, Content-Type, X-Request-ID
//   - Exposed headers: Link, X-RateLimit-Limit, X-RateLimit-Remaining
//   - Max age: 300 seconds
//
// Do not use "*" for allowedOrigins: browsers reject wildcard origins
// combined with credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "User-Agent"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}

// Logger creates structured request logging middleware.
//
// Every request gets a request ID: an incoming X-Request-ID header is
// honored (load balancers and proxies set one), otherwise a fresh UUID
// is generated. The ID is placed in the request context for downstream
// log lines, and echoed in the response headers so clients can quote it
// when reporting problems.
//
// Two lines are emitted per request:
//
//	{"level":"info","request_id":"abc-123","method":"GET","path":"/api/analytics","msg":"Request started"}
//	{"level":"info","request_id":"abc-123","status":200,"bytes":412,"duration_ms":18,"msg":"Request completed"}
//
// The completion line carries status, response size, and wall time.
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := utils.WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			// Wrap the writer to capture the status and byte count
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Request-ID", requestID)

			log.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("Request started")

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			log.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", duration).
				Msg("Request completed")
		})
	}
}

// Recoverer converts handler panics into 500 responses.
//
// The panic value and request context are logged; the client only sees
// a generic Internal Server Error. Register this first in the chain so
// it also covers panics in other middleware.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("error", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds standard security headers to every response.
//
//   - X-Content-Type-Options: nosniff — no MIME sniffing
//   - X-Frame-Options: DENY — no iframe embedding
//   - X-XSS-Protection: 1; mode=block — legacy browser XSS filter
//   - Strict-Transport-Security — HTTPS for a year incl. subdomains
//   - Content-Security-Policy — self-hosted resources, plus
//     lh3.googleusercontent.com for Google profile pictures and data:
//     URIs for the category color swatches
//   - Referrer-Policy: strict-origin-when-cross-origin
//
// The inline script/style allowance exists because the dashboard is a
// single static page with inline handlers.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' https://lh3.googleusercontent.com data:")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
