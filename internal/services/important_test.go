package services

import (
	"context"
	"testing"
	"time"

	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSettingsDB struct {
	mock.Mock
}

func (m *MockSettingsDB) GetImportantEventSettings(ctx context.Context, userID string) (*models.ImportantEventSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportantEventSettings), args.Error(1)
}

func (m *MockSettingsDB) CreateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportantEventSettings), args.Error(1)
}

func (m *MockSettingsDB) UpdateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportantEventSettings), args.Error(1)
}

type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) ListAllEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	args := m.Called(ctx, userID, timeMin, timeMax)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CalendarEvent), args.Error(1)
}

func settingsFixture(enabled bool, limit int, keywords ...string) *models.ImportantEventSettings {
	return &models.ImportantEventSettings{
		ID:           "settings-1",
		UserID:       "user-1",
		Keywords:     keywords,
		Enabled:      enabled,
		DisplayLimit: limit,
	}
}

func TestSettingsCreatedLazily(t *testing.T) {
	db := &MockSettingsDB{}
	svc := NewImportantEventService(db, &MockEventSource{})
	ctx := context.Background()

	db.On("GetImportantEventSettings", mock.Anything, "user-1").Return(nil, database.ErrNotFound)
	db.On("CreateImportantEventSettings", mock.Anything, "user-1", mock.MatchedBy(func(input *models.ImportantEventSettingsInput) bool {
		return input.Enabled && input.DisplayLimit == 3 && len(input.Keywords) == 7
	})).Return(settingsFixture(true, 3, defaultImportantKeywords...), nil)

	settings, err := svc.Settings(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Equal(t, 3, settings.DisplayLimit)
	assert.Contains(t, settings.Keywords, "urgent")
}

func TestSettingsExistingRowReturned(t *testing.T) {
	db := &MockSettingsDB{}
	svc := NewImportantEventService(db, &MockEventSource{})

	existing := settingsFixture(false, 5, "launch")
	db.On("GetImportantEventSettings", mock.Anything, "user-1").Return(existing, nil)

	settings, err := svc.Settings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, existing, settings)
	db.AssertNotCalled(t, "CreateImportantEventSettings", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateSettingsNormalizesKeywords(t *testing.T) {
	db := &MockSettingsDB{}
	svc := NewImportantEventService(db, &MockEventSource{})

	db.On("GetImportantEventSettings", mock.Anything, "user-1").Return(settingsFixture(true, 3, "important"), nil)
	db.On("UpdateImportantEventSettings", mock.Anything, "user-1", mock.MatchedBy(func(input *models.ImportantEventSettingsInput) bool {
		return assert.ObjectsAreEqual([]string{"board", "deadline"}, input.Keywords)
	})).Return(settingsFixture(true, 5, "board", "deadline"), nil)

	updated, err := svc.UpdateSettings(context.Background(), "user-1", &models.ImportantEventSettingsInput{
		Keywords:     []string{"  Board ", "DEADLINE", "board", "", "   "},
		Enabled:      true,
		DisplayLimit: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"board", "deadline"}, updated.Keywords)
}

func TestImportantEventsDisabled(t *testing.T) {
	db := &MockSettingsDB{}
	events := &MockEventSource{}
	svc := NewImportantEventService(db, events)

	db.On("GetImportantEventSettings", mock.Anything, "user-1").Return(settingsFixture(false, 3, "urgent"), nil)

	filtered, settings, err := svc.ImportantEvents(context.Background(), "user-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, filtered)
	assert.False(t, settings.Enabled)
	events.AssertNotCalled(t, "ListAllEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestImportantEventsFiltersAndLimits(t *testing.T) {
	db := &MockSettingsDB{}
	events := &MockEventSource{}
	svc := NewImportantEventService(db, events)
	ctx := context.Background()

	db.On("GetImportantEventSettings", mock.Anything, "user-1").Return(settingsFixture(true, 2, "urgent", "board"), nil)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	events.On("ListAllEvents", mock.Anything, "user-1", mock.Anything, mock.Anything).Return([]models.CalendarEvent{
		testutil.NewTimedEvent("e1", "Board meeting", base.Add(48*time.Hour), time.Hour),
		testutil.NewTimedEvent("e2", "Urgent: fix roof", base, time.Hour),
		testutil.NewTimedEvent("e3", "Choir practice", base.Add(time.Hour), time.Hour),
		testutil.NewTimedEvent("e4", "URGENT board review", base.Add(24*time.Hour), time.Hour),
	}, nil)

	filtered, settings, err := svc.ImportantEvents(ctx, "user-1", base, base.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, settings.DisplayLimit)

	// Sorted by start, truncated to the display limit
	require.Len(t, filtered, 2)
	assert.Equal(t, "e2", filtered[0].ID)
	assert.Equal(t, "e4", filtered[1].ID)
}

func TestNormalizeKeywords(t *testing.T) {
	assert.Equal(t,
		[]string{"urgent", "board meeting", "deadline"},
		normalizeKeywords([]string{" Urgent", "Board Meeting", "URGENT", "deadline", " ", ""}),
	)
	assert.Empty(t, normalizeKeywords(nil))
}
