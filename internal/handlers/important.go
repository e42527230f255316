package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// ImportantEventManager defines the important-event operations the
// handler delegates to.
type ImportantEventManager interface {
	Settings(ctx context.Context, userID string) (*models.ImportantEventSettings, error)
	UpdateSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error)
	ImportantEvents(ctx context.Context, userID string, timeMin, timeMax time.Time) ([]models.CalendarEvent, *models.ImportantEventSettings, error)
}

// ImportantEventHandler handles the important-events widget endpoints:
// the per-user keyword settings and the filtered upcoming-events view.
type ImportantEventHandler struct {
	important ImportantEventManager
	validate  *validator.Validate
}

// NewImportantEventHandler creates a new important-events handler.
func NewImportantEventHandler(important ImportantEventManager) *ImportantEventHandler {
	return &ImportantEventHandler{
		important: important,
		validate:  newValidator(),
	}
}

// GetSettings returns the user's settings, creating the default row on
// first access.
//
// @Summary      Get important-event settings
// @Tags         important-events
// @Produce      json
// @Success      200  {object}  models.ImportantEventSettings
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/important-events/settings [get]
func (h *ImportantEventHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	settings, err := h.important.Settings(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get important-event settings")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get important event settings")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, settings)
}

// UpdateSettings stores new widget settings after validating the
// display limit and normalizing keywords.
//
// @Summary      Update important-event settings
// @Tags         important-events
// @Accept       json
// @Produce      json
// @Param        settings  body      models.ImportantEventSettingsInput  true  "New settings"
// @Success      200       {object}  models.ImportantEventSettings
// @Failure      400       {object}  utils.ErrorResponse
// @Router       /api/important-events/settings [put]
func (h *ImportantEventHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var input models.ImportantEventSettingsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.Keywords == nil {
		input.Keywords = []string{}
	}

	settings, err := h.important.UpdateSettings(r.Context(), userID, &input)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update important-event settings")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update important event settings")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, settings)
}

// ImportantEventsResponse carries the filtered events alongside the
// settings that produced them, so the widget can render its header
// without a second request.
type ImportantEventsResponse struct {
	Events   []models.CalendarEvent         `json:"events"`
	Settings *models.ImportantEventSettings `json:"settings"`
}

// List returns the user's upcoming important events, filtered by the
// stored keywords and capped at the display limit. Empty when the
// widget is disabled.
//
// @Summary      List important events
// @Tags         important-events
// @Produce      json
// @Param        timeMin  query  string  false  "RFC 3339 lower bound (default: now)"
// @Param        timeMax  query  string  false  "RFC 3339 upper bound"
// @Success      200  {object}  ImportantEventsResponse
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/important-events [get]
func (h *ImportantEventHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	timeMin, timeMax, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	events, settings, err := h.important.ImportantEvents(r.Context(), userID, timeMin, timeMax)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list important events")
		respondUpstreamError(w, r, err, "Failed to fetch important events")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, ImportantEventsResponse{
		Events:   events,
		Settings: settings,
	})
}
