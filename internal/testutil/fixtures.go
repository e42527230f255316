// Package testutil provides shared helpers for unit tests: miniredis
// setup and model fixtures.
package testutil

import (
	"time"

	"github.com/madigan/timely/internal/models"
)

// TestEncryptionKey is a deterministic 64-hex-char key for cipher tests.
const TestEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// NewUser builds a user row fixture. Token fields hold already-encrypted
// values when the test needs them; most tests only care about identity.
func NewUser(id string) *models.User {
	return &models.User{
		ID:        id,
		Email:     id + "@example.com",
		Name:      "Test User",
		Picture:   "https://example.com/avatar.png",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// NewCategory builds a category fixture with the given keywords.
func NewCategory(id, name string, target int, keywords ...string) models.Category {
	return models.Category{
		ID:       id,
		Name:     name,
		Color:    "#3B82F6",
		Keywords: keywords,
		Target:   target,
	}
}

// NewTimedEvent builds a timed calendar event fixture.
func NewTimedEvent(id, summary string, start time.Time, duration time.Duration) models.CalendarEvent {
	return models.CalendarEvent{
		ID:      id,
		Summary: summary,
		Start:   models.NewTimedEventTime(start),
		End:     models.NewTimedEventTime(start.Add(duration)),
	}
}

// NewAllDayEvent builds an all-day calendar event fixture spanning one day.
func NewAllDayEvent(id, summary, startDate, endDate string) models.CalendarEvent {
	return models.CalendarEvent{
		ID:      id,
		Summary: summary,
		Start:   models.NewAllDayEventTime(startDate),
		End:     models.NewAllDayEventTime(endDate),
	}
}
