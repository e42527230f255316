package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/madigan/timely/internal/analytics"
	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/internal/services"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// CalendarGateway defines the calendar retrieval operations the handler
// delegates to.
type CalendarGateway interface {
	ListCalendars(ctx context.Context, userID string) ([]models.CalendarListItem, error)
	ListEvents(ctx context.Context, userID, calendarID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error)
	ListAllEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, error)
}

// CalendarHandler handles calendar, event, and analytics endpoints.
type CalendarHandler struct {
	gateway       CalendarGateway
	categories    CategoryManager
	maxCategories int // Analytics grouping threshold
	topCategories int // Categories kept before the "Other" bucket
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(gateway CalendarGateway, categories CategoryManager, maxCategories, topCategories int) *CalendarHandler {
	return &CalendarHandler{
		gateway:       gateway,
		categories:    categories,
		maxCategories: maxCategories,
		topCategories: topCategories,
	}
}

// parseTimeRange reads the optional timeMin/timeMax RFC 3339 query
// parameters. A false return means an error response was written.
func parseTimeRange(w http.ResponseWriter, r *http.Request) (timeMin, timeMax time.Time, ok bool) {
	query := r.URL.Query()

	if raw := query.Get("timeMin"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid timeMin: must be RFC 3339")
			return timeMin, timeMax, false
		}
		timeMin = parsed
	}
	if raw := query.Get("timeMax"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid timeMax: must be RFC 3339")
			return timeMin, timeMax, false
		}
		timeMax = parsed
	}
	return timeMin, timeMax, true
}

// respondUpstreamError maps gateway failures to HTTP statuses: a
// refresh failure means the user must sign in again, anything else is a
// plain upstream failure.
func respondUpstreamError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, services.ErrReauthRequired) {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "Reauthentication required")
		return
	}
	utils.RespondWithError(w, r, http.StatusInternalServerError, message)
}

// ListCalendars returns the user's calendar list.
//
// @Summary      List calendars
// @Tags         calendar
// @Produce      json
// @Success      200  {array}   models.CalendarListItem
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/calendars [get]
func (h *CalendarHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	calendars, err := h.gateway.ListCalendars(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch calendars")
		respondUpstreamError(w, r, err, "Failed to fetch calendars")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, calendars)
}

// ListEvents returns events from one calendar.
//
// @Summary      List events for a calendar
// @Tags         calendar
// @Produce      json
// @Param        id       path   string  true   "Calendar ID"
// @Param        timeMin  query  string  false  "RFC 3339 lower bound (default: now)"
// @Param        timeMax  query  string  false  "RFC 3339 upper bound"
// @Success      200  {array}   models.CalendarEvent
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/calendars/{id}/events [get]
func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	calendarID := chi.URLParam(r, "id")

	timeMin, timeMax, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	events, err := h.gateway.ListEvents(r.Context(), userID, calendarID, timeMin, timeMax)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("calendar_id", calendarID).Msg("Failed to fetch events")
		respondUpstreamError(w, r, err, "Failed to fetch calendar events")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, events)
}

// ListAllEvents returns the merged event stream across all enabled
// calendars, sorted by start time.
//
// @Summary      List events across all calendars
// @Tags         calendar
// @Produce      json
// @Param        timeMin  query  string  false  "RFC 3339 lower bound (default: now)"
// @Param        timeMax  query  string  false  "RFC 3339 upper bound"
// @Success      200  {array}   models.CalendarEvent
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/events [get]
func (h *CalendarHandler) ListAllEvents(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	timeMin, timeMax, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	events, err := h.gateway.ListAllEvents(r.Context(), userID, timeMin, timeMax)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch all events")
		respondUpstreamError(w, r, err, "Failed to fetch events")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, events)
}

// Analytics builds the time-allocation report: per-category hours,
// percentages, and performance scores over the requested range, with
// small categories collapsed into an "Other" bucket for display.
//
// @Summary      Category analytics
// @Tags         analytics
// @Produce      json
// @Param        timeMin  query  string  false  "RFC 3339 lower bound (default: now)"
// @Param        timeMax  query  string  false  "RFC 3339 upper bound"
// @Success      200  {object}  models.AnalyticsReport
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/analytics [get]
func (h *CalendarHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	timeMin, timeMax, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	categories, err := h.categories.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list categories for analytics")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to build analytics")
		return
	}

	events, err := h.gateway.ListAllEvents(r.Context(), userID, timeMin, timeMax)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch events for analytics")
		respondUpstreamError(w, r, err, "Failed to build analytics")
		return
	}

	report := analytics.BuildReport(events, categories)
	report.Categories = analytics.GroupCategoryResults(report.Categories, h.maxCategories, h.topCategories)

	utils.RespondWithJSON(w, r, http.StatusOK, report)
}
