package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/madigan/timely/internal/middleware"
	"github.com/madigan/timely/internal/models"
	"github.com/madigan/timely/internal/services"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// hexColorPattern matches the "#RRGGBB" colors the frontend palette
// produces. Registered as the custom "hexcolor6" validation tag.
var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// newValidator builds the request validator with custom tags registered.
func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag name
	_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		return hexColorPattern.MatchString(fl.Field().String())
	})
	return v
}

// CategoryManager defines the category operations the handler delegates
// to. Abstracts the service layer for testing.
type CategoryManager interface {
	List(ctx context.Context, userID string) ([]models.Category, error)
	Create(ctx context.Context, userID string, input *models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, userID, categoryID string, input *models.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, userID, categoryID string) error
}

// CategoryHandler handles CRUD endpoints for event categories. All
// operations are scoped to the authenticated user; a category belonging
// to someone else is indistinguishable from a missing one.
type CategoryHandler struct {
	categories CategoryManager
	validate   *validator.Validate
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categories CategoryManager) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		validate:   newValidator(),
	}
}

// decodeCategoryInput parses and validates the request body. A false
// return means the response has already been written.
func (h *CategoryHandler) decodeCategoryInput(w http.ResponseWriter, r *http.Request) (*models.CategoryInput, bool) {
	var input models.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := h.validate.Struct(&input); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return nil, false
	}
	if input.Keywords == nil {
		input.Keywords = []string{}
	}
	return &input, true
}

// List returns the user's categories, seeding defaults for users who
// have none.
//
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200  {object}  map[string][]models.Category
// @Failure      401  {object}  utils.ErrorResponse
// @Router       /api/categories [get]
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	categories, err := h.categories.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list categories")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string][]models.Category{"categories": categories})
}

// Create adds a new category.
//
// @Summary      Create category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        category  body      models.CategoryInput  true  "Category fields"
// @Success      201       {object}  map[string]models.Category
// @Failure      400       {object}  utils.ErrorResponse
// @Router       /api/categories [post]
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	input, ok := h.decodeCategoryInput(w, r)
	if !ok {
		return
	}

	category, err := h.categories.Create(r.Context(), userID, input)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create category")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create category")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusCreated, map[string]*models.Category{"category": category})
}

// Update replaces a category's fields.
//
// @Summary      Update category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id        path      string                true  "Category ID"
// @Param        category  body      models.CategoryInput  true  "Category fields"
// @Success      200       {object}  map[string]models.Category
// @Failure      404       {object}  utils.ErrorResponse
// @Router       /api/categories/{id} [put]
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	categoryID := chi.URLParam(r, "id")

	input, ok := h.decodeCategoryInput(w, r)
	if !ok {
		return
	}

	category, err := h.categories.Update(r.Context(), userID, categoryID, input)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Category not found")
			return
		}
		log.Error().Err(err).Str("user_id", userID).Str("category_id", categoryID).Msg("Failed to update category")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update category")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]*models.Category{"category": category})
}

// Delete removes a category.
//
// @Summary      Delete category
// @Tags         categories
// @Produce      json
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  utils.ErrorResponse
// @Router       /api/categories/{id} [delete]
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	categoryID := chi.URLParam(r, "id")

	if err := h.categories.Delete(r.Context(), userID, categoryID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Category not found")
			return
		}
		log.Error().Err(err).Str("user_id", userID).Str("category_id", categoryID).Msg("Failed to delete category")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to delete category")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
