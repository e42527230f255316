package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/pkg/cache"
	"github.com/madigan/timely/pkg/crypto"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// refreshWindow is how close to expiry an access token may get before it
// is refreshed ahead of use.
const refreshWindow = 5 * time.Minute

// calendarListTTL bounds staleness of the cached calendar list.
const calendarListTTL = 5 * time.Minute

// CalendarDatabase defines the persistence operations the calendar
// gateway needs: loading a user's encrypted tokens and writing back a
// refreshed access token.
type CalendarDatabase interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateUserToken(ctx context.Context, userID, encryptedAccessToken string, expiry *int64) error
}

// CalendarAPI abstracts the Google Calendar API for testing. The access
// token is passed per call so the adapter stays stateless.
type CalendarAPI interface {
	ListCalendars(ctx context.Context, accessToken string) ([]models.CalendarListItem, error)
	ListEvents(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error)
}

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// CalendarService is the gateway to the Google Calendar API. It owns
// token lifecycle (decrypt, refresh-ahead-of-expiry, re-encrypt and
// persist) so that no other layer ever sees plaintext Google tokens,
// and it caches the calendar list to keep dashboard loads off the
// upstream API.
type CalendarService struct {
	db        CalendarDatabase
	api       CalendarAPI
	refresher TokenRefresher
	cache     *cache.Cache
	cipher    *crypto.TokenCipher
}

// NewCalendarService creates a calendar gateway.
func NewCalendarService(db CalendarDatabase, api CalendarAPI, refresher TokenRefresher, c *cache.Cache, cipher *crypto.TokenCipher) *CalendarService {
	return &CalendarService{
		db:        db,
		api:       api,
		refresher: refresher,
		cache:     c,
		cipher:    cipher,
	}
}

// ListCalendars returns the user's calendar list, served from cache when
// a fresh copy exists.
func (s *CalendarService) ListCalendars(ctx context.Context, userID string) ([]models.CalendarListItem, error) {
	var calendars []models.CalendarListItem
	err := s.cache.GetOrSet(ctx, cache.CalendarsKey(userID), calendarListTTL, &calendars, func() (interface{}, error) {
		token, err := s.accessToken(ctx, userID)
		if err != nil {
			return nil, err
		}
		items, err := s.api.ListCalendars(ctx, token)
		if err != nil {
			middleware.IncrementCalendarRequest("list_calendars", "error")
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch calendar list")
			return nil, fmt.Errorf("%w: calendar list: %v", ErrUpstreamFetch, err)
		}
		middleware.IncrementCalendarRequest("list_calendars", "success")
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

// ListEvents returns events from a single calendar. A zero timeMin
// defaults to now, so without an explicit range only upcoming events are
// returned. The upstream call expands recurring events and orders by
// start time.
func (s *CalendarService) ListEvents(ctx context.Context, userID, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	token, err := s.accessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	if timeMin.IsZero() {
		timeMin = time.Now()
	}

	events, err := s.api.ListEvents(ctx, token, calendarID, timeMin, timeMax)
	if err != nil {
		middleware.IncrementCalendarRequest("list_events", "error")
		log.Error().Err(err).Str("user_id", userID).Str("calendar_id", calendarID).Msg("Failed to fetch events")
		return nil, fmt.Errorf("%w: events for calendar %s: %v", ErrUpstreamFetch, calendarID, err)
	}
	middleware.IncrementCalendarRequest("list_events", "success")
	return events, nil
}

// ListAllEvents aggregates events across every enabled calendar. A
// calendar whose fetch fails is skipped with a log entry so one broken
// calendar cannot blank the whole dashboard. The merged result is sorted
// by start time.
func (s *CalendarService) ListAllEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	calendars, err := s.ListCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}

	var all []models.CalendarEvent
	for _, cal := range calendars {
		if !cal.Enabled {
			continue
		}
		events, err := s.ListEvents(ctx, userID, cal.ID, timeMin, timeMax)
		if err != nil {
			log.Warn().Err(err).Str("calendar_id", cal.ID).Msg("Skipping calendar after fetch failure")
			continue
		}
		all = append(all, events...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Instant.Before(all[j].Start.Instant)
	})

	return all, nil
}

// accessToken returns a plaintext access token that is valid for at
// least refreshWindow, refreshing and persisting it when necessary.
//
// A token without a stored expiry is assumed valid: Google occasionally
// omits expiry_date on freshly issued tokens, and refusing them would
// lock those users out.
func (s *CalendarService) accessToken(ctx context.Context, userID string) (string, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if !needsRefresh(user.TokenExpiry, time.Now()) {
		return s.cipher.Decrypt(user.AccessToken)
	}

	if user.RefreshToken == "" {
		log.Warn().Str("user_id", userID).Msg("Access token expired and no refresh token stored")
		return "", ErrReauthRequired
	}

	refreshToken, err := s.cipher.Decrypt(user.RefreshToken)
	if err != nil {
		return "", err
	}

	token, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		middleware.IncrementTokenRefresh("error")
		log.Error().Err(err).Str("user_id", userID).Msg("Token refresh failed")
		return "", ErrReauthRequired
	}
	middleware.IncrementTokenRefresh("success")

	encrypted, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return "", err
	}

	var expiry *int64
	if !token.Expiry.IsZero() {
		ms := token.Expiry.UnixMilli()
		expiry = &ms
	}

	if err := s.db.UpdateUserToken(ctx, userID, encrypted, expiry); err != nil {
		return "", err
	}

	log.Debug().Str("user_id", userID).Msg("Refreshed Google access token")
	return token.AccessToken, nil
}

// needsRefresh reports whether the stored expiry (unix millis) falls
// within refreshWindow of now. A nil expiry never triggers a refresh.
func needsRefresh(expiry *int64, now time.Time) bool {
	if expiry == nil {
		return false
	}
	return time.UnixMilli(*expiry).Before(now.Add(refreshWindow))
}
