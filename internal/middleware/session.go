package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// SessionCookieName is the cookie carrying the opaque session ID. The
// value is an unguessable random identifier; all session state lives
// server-side.
const SessionCookieName = "timely_session"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID.
	UserIDKey contextKey = "user_id"

	// SessionIDKey is the context key for the presented session ID,
	// needed by logout to remove the exact session.
	SessionIDKey contextKey = "session_id"
)

// SessionResolver resolves a session cookie to its owning user.
// Satisfied by database.PostgresDB.
type SessionResolver interface {
	GetSessionUserID(ctx context.Context, sessionID string) (string, error)
}

// SessionAuth creates middleware that authenticates requests via the
// session cookie. A missing cookie, an unknown session, and an expired
// session all yield 401 without distinguishing the cases.
//
// On success the user ID and session ID are stored in the request
// context for handlers to read via GetUserID and GetSessionID.
//
// Usage:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(middleware.SessionAuth(db))
//	    r.Get("/api/categories", handler.List)
//	})
func SessionAuth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				utils.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, err := sessions.GetSessionUserID(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, database.ErrNotFound) {
					log.Error().Err(err).Msg("Session lookup failed")
					utils.RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
					return
				}
				utils.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, SessionIDKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the authenticated user's ID from the request
// context. The boolean is false when the request did not pass through
// SessionAuth.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetSessionID extracts the presented session ID from the request
// context.
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok
}
