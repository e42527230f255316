package services

import (
	"context"
	"fmt"
	"time"

	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/pkg/config"
	"github.com/madigan/timely/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// defaultCalendarColor is used when Google omits a calendar's background
// color.
const defaultCalendarColor = "#1976D2"

// maxEventResults caps a single events.list page. Recurring events are
// expanded server-side, so this covers several months for typical
// calendars.
const maxEventResults = 2500

// GoogleCalendarAPI implements CalendarAPI against the real Google
// Calendar API. A new service client is built per call from the caller's
// access token, keeping the adapter free of per-user state.
type GoogleCalendarAPI struct{}

// NewGoogleCalendarAPI creates the production Calendar API adapter.
func NewGoogleCalendarAPI() *GoogleCalendarAPI {
	return &GoogleCalendarAPI{}
}

func (g *GoogleCalendarAPI) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	srv, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return srv, nil
}

// ListCalendars fetches the user's calendar list. Hidden calendars are
// excluded and every calendar comes back enabled; per-calendar toggles
// live client-side.
func (g *GoogleCalendarAPI) ListCalendars(ctx context.Context, accessToken string) ([]models.CalendarListItem, error) {
	srv, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	list, err := utils.RetryWithResult(ctx, utils.ExternalAPIRetryConfig(), func() (*calendar.CalendarList, error) {
		return srv.CalendarList.List().
			MinAccessRole("reader").
			ShowHidden(false).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("calendar list request failed: %w", err)
	}

	items := make([]models.CalendarListItem, 0, len(list.Items))
	for _, entry := range list.Items {
		color := entry.BackgroundColor
		if color == "" {
			color = defaultCalendarColor
		}
		items = append(items, models.CalendarListItem{
			ID:              entry.Id,
			Summary:         entry.Summary,
			Primary:         entry.Primary,
			BackgroundColor: color,
			Enabled:         true,
		})
	}
	return items, nil
}

// ListEvents fetches events from one calendar with recurring events
// expanded to single instances, ordered by start time. A zero timeMax
// leaves the range open-ended.
func (g *GoogleCalendarAPI) ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	srv, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := srv.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEventResults).
		Context(ctx)
	if !timeMax.IsZero() {
		call = call.TimeMax(timeMax.Format(time.RFC3339))
	}

	resp, err := utils.RetryWithResult(ctx, utils.ExternalAPIRetryConfig(), func() (*calendar.Events, error) {
		return call.Do()
	})
	if err != nil {
		return nil, fmt.Errorf("events request failed: %w", err)
	}

	events := make([]models.CalendarEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, convertEvent(item))
	}
	return events, nil
}

// convertEvent maps a wire event to the internal model, resolving start
// and end instants once.
func convertEvent(item *calendar.Event) models.CalendarEvent {
	summary := item.Summary
	if summary == "" {
		summary = "No Title"
	}

	event := models.CalendarEvent{
		ID:          item.Id,
		Summary:     summary,
		Description: item.Description,
		Location:    item.Location,
	}
	if item.Start != nil {
		event.Start = convertEventTime(item.Start)
	}
	if item.End != nil {
		event.End = convertEventTime(item.End)
	}
	return event
}

func convertEventTime(t *calendar.EventDateTime) models.EventTime {
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return models.NewTimedEventTime(parsed)
		}
	}
	if t.Date != "" {
		return models.NewAllDayEventTime(t.Date)
	}
	return models.EventTime{}
}

// GoogleTokenRefresher implements TokenRefresher using the OAuth client
// credentials. The oauth2 package performs the refresh grant when handed
// a token that only carries a refresh token.
type GoogleTokenRefresher struct {
	config *oauth2.Config
}

// NewGoogleTokenRefresher creates a refresher from OAuth client
// configuration.
func NewGoogleTokenRefresher(cfg *config.OAuthConfig) *GoogleTokenRefresher {
	return &GoogleTokenRefresher{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
		},
	}
}

// Refresh exchanges a refresh token for a fresh access token.
func (r *GoogleTokenRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh grant failed: %w", err)
	}
	return token, nil
}
