package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/internal/testutil"
	"github.com/madigan/timely/pkg/cache"
	"github.com/madigan/timely/pkg/config"
	"github.com/madigan/timely/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type MockAuthDB struct {
	mock.Mock
}

func (m *MockAuthDB) UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockAuthDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthDB) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error) {
	args := m.Called(ctx, userID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockAuthDB) DeleteUserAndSession(ctx context.Context, userID, sessionID string) error {
	args := m.Called(ctx, userID, sessionID)
	return args.Error(0)
}

func (m *MockAuthDB) CreateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportantEventSettings), args.Error(1)
}

func (m *MockAuthDB) InsertCategories(ctx context.Context, userID string, inputs []models.CategoryInput) error {
	args := m.Called(ctx, userID, inputs)
	return args.Error(0)
}

func setupOAuthService(t *testing.T) (*OAuthService, *MockAuthDB, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	states := testutil.NewTestRedisDB(t, mr)
	t.Cleanup(func() { states.Close() })

	db := &MockAuthDB{}
	svc := NewOAuthService(
		&config.OAuthConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:3000/auth/google/callback",
			UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
			StateTTL:     10 * time.Minute,
		},
		&config.SessionConfig{TTL: 30 * 24 * time.Hour},
		db,
		states,
		cache.NewCache(states.Client()),
		crypto.NewTokenCipher(testutil.TestEncryptionKey),
	)
	return svc, db, mr
}

func TestBeginAuth(t *testing.T) {
	svc, _, _ := setupOAuthService(t)
	ctx := context.Background()

	authURL, state, err := svc.BeginAuth(ctx)
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "offline", query.Get("access_type"))
	assert.Equal(t, "consent", query.Get("prompt"))
	assert.Contains(t, query.Get("scope"), "calendar.readonly")

	assert.Equal(t, state, query.Get("state"))
	require.Len(t, state, 64, "state is 32 random bytes hex encoded")

	// The issued state must be stored and consumable exactly once
	ok, err := svc.states.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBeginAuthStatesAreUnique(t *testing.T) {
	svc, _, _ := setupOAuthService(t)
	ctx := context.Background()

	_, first, err := svc.BeginAuth(ctx)
	require.NoError(t, err)
	_, second, err := svc.BeginAuth(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCompleteAuthRejectsUnknownState(t *testing.T) {
	svc, db, _ := setupOAuthService(t)

	_, _, err := svc.CompleteAuth(context.Background(), "forged-state", "code")
	assert.ErrorIs(t, err, ErrInvalidState)
	db.AssertNotCalled(t, "UpsertUser", mock.Anything, mock.Anything)
}

func TestCompleteAuthRejectsExpiredState(t *testing.T) {
	svc, _, mr := setupOAuthService(t)
	ctx := context.Background()

	_, state, err := svc.BeginAuth(ctx)
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)

	_, _, err = svc.CompleteAuth(ctx, state, "code")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBuildUserEncryptsTokens(t *testing.T) {
	svc, _, _ := setupOAuthService(t)

	expiry := time.Now().Add(time.Hour)
	user, err := svc.buildUser(&GoogleUserInfo{
		ID:      "google-123",
		Email:   "user@example.com",
		Name:    "Test User",
		Picture: "https://example.com/p.png",
	}, &oauth2.Token{
		AccessToken:  "plain-access",
		RefreshToken: "plain-refresh",
		Expiry:       expiry,
	})
	require.NoError(t, err)

	assert.Equal(t, "google-123", user.ID)
	assert.NotEqual(t, "plain-access", user.AccessToken)
	assert.NotEqual(t, "plain-refresh", user.RefreshToken)

	access, err := svc.cipher.Decrypt(user.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "plain-access", access)

	refresh, err := svc.cipher.Decrypt(user.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "plain-refresh", refresh)

	require.NotNil(t, user.TokenExpiry)
	assert.Equal(t, expiry.UnixMilli(), *user.TokenExpiry)
}

func TestBuildUserWithoutRefreshTokenOrExpiry(t *testing.T) {
	svc, _, _ := setupOAuthService(t)

	user, err := svc.buildUser(&GoogleUserInfo{ID: "google-456", Email: "u@example.com"}, &oauth2.Token{
		AccessToken: "plain-access",
	})
	require.NoError(t, err)

	assert.Empty(t, user.RefreshToken, "missing refresh token stays empty so the upsert preserves the stored one")
	assert.Nil(t, user.TokenExpiry)
}

func TestLogoutDeletesUserDataAndCache(t *testing.T) {
	svc, db, mr := setupOAuthService(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("calendars:google-123", `[{"id":"primary"}]`))
	db.On("DeleteUserAndSession", ctx, "google-123", "session-1").Return(nil)

	svc.Logout(ctx, "google-123", "session-1")

	db.AssertExpectations(t)
	assert.False(t, mr.Exists("calendars:google-123"), "cached calendar list must be dropped")
}
