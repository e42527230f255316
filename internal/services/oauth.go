package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/pkg/cache"
	"github.com/madigan/timely/pkg/config"
	"github.com/madigan/timely/pkg/crypto"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AuthDatabase defines the user and session persistence operations the
// OAuth flow needs. The interface abstracts the database layer for
// testing and dependency injection.
type AuthDatabase interface {
	UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error)
	DeleteUserAndSession(ctx context.Context, userID, sessionID string) error
	InsertCategories(ctx context.Context, userID string, inputs []models.CategoryInput) error
	CreateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error)
}

// StateStore holds short-lived CSRF state tokens. States are single-use:
// consumption must be atomic so a replayed callback cannot succeed.
type StateStore interface {
	PutOAuthState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)
}

// OAuthService handles the Google OAuth 2.0 sign-in flow. It manages
// authorization URL generation with CSRF state, code exchange, user
// profile retrieval, encrypted token persistence, and session issuance.
//
// Offline access with forced consent is requested so Google returns a
// refresh token, which keeps calendar access working after the access
// token expires.
type OAuthService struct {
	config      *oauth2.Config
	userInfoURL string
	db          AuthDatabase
	states      StateStore
	cache       *cache.Cache
	cipher      *crypto.TokenCipher
	stateTTL    time.Duration
	sessionTTL  time.Duration
}

// GoogleUserInfo represents user profile data returned from Google's
// UserInfo API (https://www.googleapis.com/oauth2/v2/userinfo).
type GoogleUserInfo struct {
	ID      string `json:"id"`      // Google account unique identifier
	Email   string `json:"email"`   // User's email address
	Name    string `json:"name"`    // Display name from Google profile
	Picture string `json:"picture"` // Profile picture URL
}

// NewOAuthService creates a new OAuth service configured for Google
// authentication with calendar read access.
//
// Parameters:
//   - cfg: OAuth configuration including client ID, secret, and redirect URL
//   - sessionCfg: session lifetime configuration
//   - db: PostgreSQL database for user and session persistence
//   - states: Redis-backed CSRF state store
//   - c: Redis cache, cleared of the user's entries on logout
//   - cipher: AES cipher protecting stored Google tokens
func NewOAuthService(cfg *config.OAuthConfig, sessionCfg *config.SessionConfig, db AuthDatabase, states StateStore, c *cache.Cache, cipher *crypto.TokenCipher) *OAuthService {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar.readonly",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}

	return &OAuthService{
		config:      oauthConfig,
		userInfoURL: cfg.UserInfoURL,
		db:          db,
		states:      states,
		cache:       c,
		cipher:      cipher,
		stateTTL:    cfg.StateTTL,
		sessionTTL:  sessionCfg.TTL,
	}
}

// BeginAuth issues a fresh CSRF state and returns the Google consent
// URL the browser should be redirected to, together with the state so
// the handler can mirror it into a short-lived cookie. The state is
// stored with its TTL before the URL is handed out, so a callback can
// never present a state the server does not know about.
//
// prompt=consent forces the consent screen so Google reissues a refresh
// token even for users who have authorized the app before.
func (s *OAuthService) BeginAuth(ctx context.Context) (string, string, error) {
	state, err := generateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate oauth state: %w", err)
	}

	if err := s.states.PutOAuthState(ctx, state, s.stateTTL); err != nil {
		return "", "", err
	}

	url := s.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return url, state, nil
}

// CompleteAuth handles the OAuth callback. It consumes the CSRF state,
// exchanges the authorization code, fetches the Google profile, stores
// the user with encrypted tokens, seeds default categories on first
// login, and issues a session.
//
// Returns ErrInvalidState when the state was never issued, already
// consumed, or expired.
func (s *OAuthService) CompleteAuth(ctx context.Context, state, code string) (*models.User, *models.Session, error) {
	ok, err := s.states.ConsumeOAuthState(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		log.Warn().Msg("OAuth callback with unknown or replayed state")
		return nil, nil, ErrInvalidState
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Failed to exchange authorization code")
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	googleUser, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.buildUser(googleUser, token)
	if err != nil {
		return nil, nil, err
	}

	stored, created, err := s.db.UpsertUser(ctx, user)
	if err != nil {
		log.Error().
			Err(err).
			Str("google_id", googleUser.ID).
			Str("email", googleUser.Email).
			Msg("Failed to upsert user")
		return nil, nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if created {
		if err := s.db.InsertCategories(ctx, stored.ID, defaultCategories); err != nil {
			return nil, nil, fmt.Errorf("failed to seed default categories: %w", err)
		}
		if _, err := s.db.CreateImportantEventSettings(ctx, stored.ID, defaultImportantSettings()); err != nil {
			return nil, nil, fmt.Errorf("failed to seed important event settings: %w", err)
		}
		log.Info().Str("user_id", stored.ID).Msg("Seeded defaults for new user")
	}

	session, err := s.db.CreateSession(ctx, stored.ID, s.sessionTTL)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("user_id", stored.ID).
		Bool("new_user", created).
		Msg("User authenticated")

	return stored, session, nil
}

// Profile returns the sanitized profile for a signed-in user.
func (s *OAuthService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// Logout removes the user's row (cascading to their categories, sessions,
// and settings) together with the presented session. Failures are logged
// but not surfaced: from the client's perspective logout always succeeds,
// and the cookie is cleared regardless.
func (s *OAuthService) Logout(ctx context.Context, userID, sessionID string) {
	if err := s.db.DeleteUserAndSession(ctx, userID, sessionID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user data on logout")
	}
	if err := s.cache.Delete(ctx, cache.CalendarsKey(userID)); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to clear cached calendars on logout")
	}
}

// fetchUserInfo retrieves the Google profile using the freshly exchanged
// token.
func (s *OAuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := s.config.Client(ctx, token)

	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch user info from Google")
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d", resp.StatusCode)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		log.Error().Err(err).Msg("Failed to decode user info")
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &userInfo, nil
}

// buildUser assembles the user row from the Google profile and token,
// encrypting token material before it ever reaches the database. The
// refresh token is left empty when Google omits it; the upsert preserves
// any previously stored value in that case.
func (s *OAuthService) buildUser(info *GoogleUserInfo, token *oauth2.Token) (*models.User, error) {
	encryptedAccess, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	user := &models.User{
		ID:          info.ID,
		AccessToken: encryptedAccess,
		Email:       info.Email,
		Name:        info.Name,
		Picture:     info.Picture,
	}

	if token.RefreshToken != "" {
		encryptedRefresh, err := s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		user.RefreshToken = encryptedRefresh
	}

	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UnixMilli()
		user.TokenExpiry = &expiry
	}

	return user, nil
}

// generateState returns a 64-character hex string from 32 random bytes.
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
