// Package utils holds HTTP plumbing shared by the handlers: JSON
// response and error helpers with request ID injection, cookie
// management for the session and OAuth state cookies, client IP
// extraction, and retry with exponential backoff for flaky
// dependencies.
package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// GetRequestID returns the request ID stored in ctx, or "" when none
// is present. Safe to call with a nil context.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID stores a request ID in the context. Called by the
// logging middleware; handlers and services read it back through
// GetRequestID so log lines across a request correlate.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ErrorResponse is the JSON body for every API error.
type ErrorResponse struct {
	Error     string `json:"error"`                // HTTP status text
	Message   string `json:"message,omitempty"`    // Human-readable detail
	RequestID string `json:"request_id,omitempty"` // For support correlation
}

// RespondWithError writes a JSON error response, picking up the
// request ID from the request context.
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	requestID := GetRequestID(r.Context())
	RespondWithErrorAndRequestID(w, statusCode, message, requestID)
}

// RespondWithErrorAndRequestID is RespondWithError with an explicit
// request ID, for callers that don't have the request handy.
func RespondWithErrorAndRequestID(w http.ResponseWriter, statusCode int, message string, requestID string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to encode error response")
	}
}

// RespondWithJSON writes data as a JSON response with the given status.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	requestID := GetRequestID(r.Context())
	RespondWithJSONAndRequestID(w, statusCode, data, requestID)
}

// RespondWithJSONAndRequestID is RespondWithJSON with an explicit
// request ID for logging encode failures.
func RespondWithJSONAndRequestID(w http.ResponseWriter, statusCode int, data interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to encode JSON response")
	}
}

// SetAuthCookie sets an HttpOnly SameSite=Lax cookie with an absolute
// expiry. Used for the timely_session cookie, whose lifetime matches
// the server-side session row. Secure is set only in production so
// local HTTP development keeps working.
func SetAuthCookie(w http.ResponseWriter, name, value string, expires time.Time, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// SetAuthCookieWithMaxAge is SetAuthCookie with a relative lifetime in
// seconds. Used for the short-lived oauth_state cookie.
func SetAuthCookieWithMaxAge(w http.ResponseWriter, name, value string, maxAge int, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearAuthCookie tells the browser to delete a cookie immediately.
func ClearAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
