package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/madigan/timely/internal/analytics"
	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/internal/models"
	"github.com/rs/zerolog/log"
)

// SettingsDatabase defines persistence for important-event settings.
type SettingsDatabase interface {
	GetImportantEventSettings(ctx context.Context, userID string) (*models.ImportantEventSettings, error)
	CreateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error)
	UpdateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error)
}

// EventSource supplies the event stream the important-event filter runs
// over. Satisfied by CalendarService.
type EventSource interface {
	ListAllEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error)
}

// ImportantEventService manages per-user important-event settings and
// produces the filtered upcoming-events view for the dashboard widget.
type ImportantEventService struct {
	db     SettingsDatabase
	events EventSource
}

// NewImportantEventService creates an important-event service.
func NewImportantEventService(db SettingsDatabase, events EventSource) *ImportantEventService {
	return &ImportantEventService{db: db, events: events}
}

// Settings returns the user's settings row, creating it with defaults on
// first access.
func (s *ImportantEventService) Settings(ctx context.Context, userID string) (*models.ImportantEventSettings, error) {
	settings, err := s.db.GetImportantEventSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	created, err := s.db.CreateImportantEventSettings(ctx, userID, defaultImportantSettings())
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID).Msg("Created default important-event settings")
	return created, nil
}

// UpdateSettings normalizes the keyword list and stores the new settings.
// Keywords are trimmed, lowercased, and deduplicated; empties are dropped.
// The row is created first when the user never had one.
func (s *ImportantEventService) UpdateSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error) {
	// Ensure the row exists so the update cannot silently hit nothing.
	if _, err := s.Settings(ctx, userID); err != nil {
		return nil, err
	}

	cleaned := *input
	cleaned.Keywords = normalizeKeywords(input.Keywords)

	return s.db.UpdateImportantEventSettings(ctx, userID, &cleaned)
}

// ImportantEvents returns the user's upcoming important events, sorted by
// start time and capped at the configured display limit. A disabled
// widget yields an empty list without touching the calendar API.
func (s *ImportantEventService) ImportantEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, *models.ImportantEventSettings, error) {
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if !settings.Enabled {
		return []models.CalendarEvent{}, settings, nil
	}

	events, err := s.events.ListAllEvents(ctx, userID, timeMin, timeMax)
	if err != nil {
		return nil, nil, err
	}

	filtered := analytics.FilterImportant(events, settings.Keywords, settings.DisplayLimit)
	return filtered, settings, nil
}

// normalizeKeywords trims, lowercases, and deduplicates while preserving
// first-seen order.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		cleaned = append(cleaned, k)
	}
	return cleaned
}
