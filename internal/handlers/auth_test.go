package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing

type MockAuthFlow struct {
	mock.Mock
}

func (m *MockAuthFlow) BeginAuth(ctx context.Context) (string, string, error) {
	args := m.Called(ctx)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthFlow) CompleteAuth(ctx context.Context, state, code string) (*models.User, *models.Session, error) {
	args := m.Called(ctx, state, code)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*models.Session), args.Error(2)
}

func (m *MockAuthFlow) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockAuthFlow) Logout(ctx context.Context, userID, sessionID string) {
	m.Called(ctx, userID, sessionID)
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) GetSessionUserID(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestGoogleLogin(t *testing.T) {
	flow := &MockAuthFlow{}
	handler := NewAuthHandler(flow, &MockSessions{}, false)

	flow.On("BeginAuth", mock.Anything).Return("https://accounts.google.com/o/oauth2/auth?state=xyz", "xyz", nil)

	rec := httptest.NewRecorder()
	handler.GoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "accounts.google.com")

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie, "state cookie must be set")
	assert.Equal(t, "xyz", stateCookie.Value)
	assert.True(t, stateCookie.HttpOnly)
}

func TestGoogleCallback(t *testing.T) {
	t.Run("success sets session cookie and redirects home", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		session := &models.Session{
			ID:        "session-abc",
			UserID:    "user-1",
			ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
		}
		flow.On("CompleteAuth", mock.Anything, "good-state", "good-code").
			Return(&models.User{ID: "user-1"}, session, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=good-state&code=good-code", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "good-state"})
		handler.GoogleCallback(rec, req)

		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		cookie := sessionCookie(rec)
		require.NotNil(t, cookie, "session cookie must be set")
		assert.Equal(t, "session-abc", cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("invalid state redirects with error code", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		flow.On("CompleteAuth", mock.Anything, "replayed", "code").
			Return(nil, nil, services.ErrInvalidState)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=replayed&code=code", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "replayed"})
		handler.GoogleCallback(rec, req)

		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "/?error=invalid_state", rec.Header().Get("Location"))
		assert.Nil(t, sessionCookie(rec))
	})

	t.Run("state cookie mismatch rejects the callback", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=code", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "original"})
		handler.GoogleCallback(rec, req)

		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "/?error=invalid_state", rec.Header().Get("Location"))
		flow.AssertNotCalled(t, "CompleteAuth", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing parameters redirect with error code", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		rec := httptest.NewRecorder()
		handler.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=only-code", nil))

		assert.Equal(t, "/?error=missing_parameters", rec.Header().Get("Location"))
		flow.AssertNotCalled(t, "CompleteAuth", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("upstream consent error is passed through", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		rec := httptest.NewRecorder()
		handler.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil))

		assert.Equal(t, "/?error=access_denied", rec.Header().Get("Location"))
	})
}

func TestProfile(t *testing.T) {
	t.Run("returns sanitized profile", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		flow.On("Profile", mock.Anything, "user-1").Return(&models.Profile{
			ID:    "user-1",
			Email: "user@example.com",
			Name:  "Test User",
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user-1")
		rec := httptest.NewRecorder()
		handler.Profile(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "user@example.com")
		assert.NotContains(t, rec.Body.String(), "token")
	})

	t.Run("missing auth context yields 401", func(t *testing.T) {
		handler := NewAuthHandler(&MockAuthFlow{}, &MockSessions{}, false)

		rec := httptest.NewRecorder()
		handler.Profile(rec, httptest.NewRequest(http.MethodGet, "/auth/profile", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deleted user yields 401", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		flow.On("Profile", mock.Anything, "gone").Return(nil, database.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, "gone")
		rec := httptest.NewRecorder()
		handler.Profile(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Run("deletes user data and clears cookie", func(t *testing.T) {
		flow := &MockAuthFlow{}
		sessions := &MockSessions{}
		handler := NewAuthHandler(flow, sessions, false)

		sessions.On("GetSessionUserID", mock.Anything, "session-abc").Return("user-1", nil)
		flow.On("Logout", mock.Anything, "user-1", "session-abc").Return()

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-abc"})
		rec := httptest.NewRecorder()
		handler.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
		flow.AssertExpectations(t)

		cookie := sessionCookie(rec)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value, "cookie must be cleared")
	})

	t.Run("succeeds without a session cookie", func(t *testing.T) {
		flow := &MockAuthFlow{}
		handler := NewAuthHandler(flow, &MockSessions{}, false)

		rec := httptest.NewRecorder()
		handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
		flow.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("succeeds when session is already gone", func(t *testing.T) {
		flow := &MockAuthFlow{}
		sessions := &MockSessions{}
		handler := NewAuthHandler(flow, sessions, false)

		sessions.On("GetSessionUserID", mock.Anything, "stale").Return("", database.ErrNotFound)

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "stale"})
		rec := httptest.NewRecorder()
		handler.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	})
}
