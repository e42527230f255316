package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/internal/services"
	"github.com/madigan/timely/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCalendarGateway struct {
	mock.Mock
}

func (m *MockCalendarGateway) ListCalendars(ctx context.Context, userID string) ([]models.CalendarListItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CalendarListItem), args.Error(1)
}

func (m *MockCalendarGateway) ListEvents(ctx context.Context, userID, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	args := m.Called(ctx, userID, calendarID, timeMin, timeMax)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CalendarEvent), args.Error(1)
}

func (m *MockCalendarGateway) ListAllEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	args := m.Called(ctx, userID, timeMin, timeMax)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CalendarEvent), args.Error(1)
}

func calendarRouter(h *CalendarHandler, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/api/calendars", h.ListCalendars)
	r.Get("/api/calendars/{id}/events", h.ListEvents)
	r.Get("/api/events", h.ListAllEvents)
	r.Get("/api/analytics", h.Analytics)
	return r
}

func TestListCalendars(t *testing.T) {
	t.Run("returns calendar list", func(t *testing.T) {
		gateway := &MockCalendarGateway{}
		router := calendarRouter(NewCalendarHandler(gateway, &MockCategoryManager{}, 4, 3), "user-1")

		gateway.On("ListCalendars", mock.Anything, "user-1").Return([]models.CalendarListItem{
			{ID: "primary", Summary: "My Calendar", BackgroundColor: "#1976D2", Enabled: true},
		}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendars", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var calendars []models.CalendarListItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &calendars))
		require.Len(t, calendars, 1)
		assert.Equal(t, "primary", calendars[0].ID)
	})

	t.Run("expired grant yields 401", func(t *testing.T) {
		gateway := &MockCalendarGateway{}
		router := calendarRouter(NewCalendarHandler(gateway, &MockCategoryManager{}, 4, 3), "user-1")

		gateway.On("ListCalendars", mock.Anything, "user-1").Return(nil, services.ErrReauthRequired)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendars", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Reauthentication required")
	})
}

func TestListEvents(t *testing.T) {
	t.Run("passes calendar ID and time range", func(t *testing.T) {
		gateway := &MockCalendarGateway{}
		router := calendarRouter(NewCalendarHandler(gateway, &MockCategoryManager{}, 4, 3), "user-1")

		timeMin := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		timeMax := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
		event := testutil.NewTimedEvent("e1", "Sunday Service", timeMin.Add(8*time.Hour), time.Hour)
		gateway.On("ListEvents", mock.Anything, "user-1", "work@group.calendar.google.com", timeMin, timeMax).
			Return([]models.CalendarEvent{event}, nil)

		url := "/api/calendars/work@group.calendar.google.com/events?timeMin=2026-09-01T00:00:00Z&timeMax=2026-09-30T00:00:00Z"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Sunday Service")
		gateway.AssertExpectations(t)
	})

	t.Run("rejects malformed time bounds", func(t *testing.T) {
		gateway := &MockCalendarGateway{}
		router := calendarRouter(NewCalendarHandler(gateway, &MockCategoryManager{}, 4, 3), "user-1")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendars/primary/events?timeMin=yesterday", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		gateway.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListAllEventsEndpoint(t *testing.T) {
	gateway := &MockCalendarGateway{}
	router := calendarRouter(NewCalendarHandler(gateway, &MockCategoryManager{}, 4, 3), "user-1")

	start := time.Date(2026, 9, 6, 10, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		testutil.NewTimedEvent("e1", "Worship Practice", start, time.Hour),
		testutil.NewTimedEvent("e2", "Potluck", start.Add(2*time.Hour), time.Hour),
	}
	gateway.On("ListAllEvents", mock.Anything, "user-1", time.Time{}, time.Time{}).Return(events, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var decoded []models.CalendarEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Len(t, decoded, 2)
}

func TestAnalyticsEndpoint(t *testing.T) {
	gateway := &MockCalendarGateway{}
	manager := &MockCategoryManager{}
	router := calendarRouter(NewCalendarHandler(gateway, manager, 4, 3), "user-1")

	manager.On("List", mock.Anything, "user-1").Return([]models.Category{
		testutil.NewCategory("cat-1", "Worship Services", 40, "worship", "service"),
		testutil.NewCategory("cat-2", "Fellowship", 25, "potluck"),
	}, nil)

	start := time.Date(2026, 9, 6, 10, 0, 0, 0, time.UTC)
	gateway.On("ListAllEvents", mock.Anything, "user-1", time.Time{}, time.Time{}).Return([]models.CalendarEvent{
		testutil.NewTimedEvent("e1", "Sunday Worship", start, 2*time.Hour),
		testutil.NewTimedEvent("e2", "Fall Potluck", start.Add(4*time.Hour), time.Hour),
		testutil.NewTimedEvent("e3", "Staff Sync", start.Add(6*time.Hour), time.Hour),
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var report models.AnalyticsReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.InDelta(t, 4.0, report.TotalHours, 0.001)
	assert.NotEmpty(t, report.Categories)
}
