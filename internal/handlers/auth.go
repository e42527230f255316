package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/internal/services"
	"github.com/madigan/timely/pkg/utils"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"
)

// AuthFlow defines the OAuth sign-in operations the handler delegates
// to. Abstracts the service layer for testing.
type AuthFlow interface {
	BeginAuth(ctx context.Context) (authURL, state string, err error)
	CompleteAuth(ctx context.Context, state, code string) (*models.User, *models.Session, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	Logout(ctx context.Context, userID, sessionID string)
}

// AuthHandler handles the Google OAuth sign-in endpoints: login
// redirect, callback, profile, and logout.
//
// Callback failures never render an error page; the browser is sent
// back to the SPA with an error code in the query string so the
// frontend can present it.
type AuthHandler struct {
	flow         AuthFlow
	sessions     middleware.SessionResolver
	isProduction bool // Affects the Secure flag on the session cookie
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(flow AuthFlow, sessions middleware.SessionResolver, isProduction bool) *AuthHandler {
	return &AuthHandler{
		flow:         flow,
		sessions:     sessions,
		isProduction: isProduction,
	}
}

// stateCookieName carries a copy of the CSRF state through the browser,
// binding the callback to the same user agent that started the flow.
const stateCookieName = "oauth_state"

// stateCookieMaxAge matches the server-side state TTL.
const stateCookieMaxAge = 600

// errorRedirect sends the browser back to the SPA with an error code.
func errorRedirect(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}

// GoogleLogin starts the OAuth flow: issues a CSRF state and redirects
// the browser to Google's consent screen.
//
// @Summary      Start Google sign-in
// @Description  Redirects to the Google OAuth consent screen.
// @Tags         auth
// @Success      307  "Redirect to Google"
// @Failure      500  {object}  utils.ErrorResponse
// @Router       /auth/google [get]
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.flow.BeginAuth(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin OAuth flow")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to start sign-in")
		return
	}

	utils.SetAuthCookieWithMaxAge(w, stateCookieName, state, stateCookieMaxAge, h.isProduction)
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// GoogleCallback completes the OAuth flow. On success it sets the
// session cookie and redirects to the dashboard; on any failure it
// redirects to the SPA with an error code.
//
// @Summary      OAuth callback
// @Description  Exchanges the authorization code, creates the user session, and redirects to /.
// @Tags         auth
// @Param        state  query  string  true   "CSRF state"
// @Param        code   query  string  true   "Authorization code"
// @Success      307  "Redirect to the dashboard"
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if upstreamErr := query.Get("error"); upstreamErr != "" {
		log.Warn().Str("error", upstreamErr).Msg("OAuth consent denied or failed upstream")
		middleware.IncrementAuthAttempts("consent_denied")
		errorRedirect(w, r, upstreamErr)
		return
	}

	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		middleware.IncrementAuthAttempts("missing_parameters")
		errorRedirect(w, r, "missing_parameters")
		return
	}

	// The cookie must echo the query state; a mismatch means the
	// callback did not come from the browser that started the flow.
	if cookie, err := r.Cookie(stateCookieName); err != nil || cookie.Value != state {
		middleware.IncrementAuthAttempts("invalid_state")
		errorRedirect(w, r, "invalid_state")
		return
	}

	_, session, err := h.flow.CompleteAuth(r.Context(), state, code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			middleware.IncrementAuthAttempts("invalid_state")
			errorRedirect(w, r, "invalid_state")
			return
		}
		log.Error().Err(err).Msg("OAuth callback failed")
		middleware.IncrementAuthAttempts("oauth_failed")
		errorRedirect(w, r, "oauth_failed")
		return
	}

	middleware.IncrementAuthAttempts("success")
	log.Info().
		Str("user_id", session.UserID).
		Str("device", deviceInfo(r.UserAgent())).
		Msg("User signed in")

	utils.ClearAuthCookie(w, stateCookieName)
	utils.SetAuthCookie(w, middleware.SessionCookieName, session.ID, session.ExpiresAt, h.isProduction)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// deviceInfo renders a user agent as a short "Browser · OS · Type"
// string for the sign-in audit log.
func deviceInfo(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}

	ua := useragent.Parse(userAgent)

	var parts []string
	if ua.Name != "" {
		browser := ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
		parts = append(parts, browser)
	}
	if ua.OS != "" {
		parts = append(parts, ua.OS)
	}
	switch {
	case ua.Mobile:
		parts = append(parts, "Mobile")
	case ua.Tablet:
		parts = append(parts, "Tablet")
	case ua.Desktop:
		parts = append(parts, "Desktop")
	}

	if len(parts) == 0 {
		return "Unknown Device"
	}
	return strings.Join(parts, " · ")
}

// Profile returns the signed-in user's profile.
//
// @Summary      Get profile
// @Description  Returns the authenticated user's Google profile data.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  models.Profile
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.flow.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Session survived the user row; treat as signed out
			utils.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load profile")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, profile)
}

// Logout deletes the user's stored data and clears the session cookie.
// The endpoint always reports success: a dangling or expired session
// still results in a cleared cookie, which is what the client needs.
//
// @Summary      Log out
// @Description  Deletes the user's account data and session, then clears the cookie.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		userID, err := h.sessions.GetSessionUserID(r.Context(), cookie.Value)
		if err == nil {
			h.flow.Logout(r.Context(), userID, cookie.Value)
		} else if !errors.Is(err, database.ErrNotFound) {
			log.Error().Err(err).Msg("Session lookup failed during logout")
		}
	}

	utils.ClearAuthCookie(w, middleware.SessionCookieName)
	utils.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
