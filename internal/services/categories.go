package services

import (
	"context"
	"errors"

	"github.com/madigan/timely/internal/database"
	"github.com/madigan/timely/internal/models"
	"github.com/rs/zerolog/log"
)

// CategoryDatabase defines the category persistence operations.
type CategoryDatabase interface {
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
	CreateCategory(ctx context.Context, userID string, input *models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID string, input *models.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
	InsertCategories(ctx context.Context, userID string, inputs []models.CategoryInput) error
}

// CategoryService manages a user's event categories. Defaults are seeded
// at first login, but a user whose account predates seeding (or who
// deleted every category) gets the defaults re-seeded lazily on list.
type CategoryService struct {
	db CategoryDatabase
}

// NewCategoryService creates a category service.
func NewCategoryService(db CategoryDatabase) *CategoryService {
	return &CategoryService{db: db}
}

// List returns the user's categories ordered by name, seeding defaults
// first when none exist.
func (s *CategoryService) List(ctx context.Context, userID string) ([]models.Category, error) {
	categories, err := s.db.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(categories) > 0 {
		return categories, nil
	}

	if err := s.db.InsertCategories(ctx, userID, defaultCategories); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID).Msg("Seeded default categories on empty list")

	return s.db.ListCategories(ctx, userID)
}

// Create adds a new category for the user.
func (s *CategoryService) Create(ctx context.Context, userID string, input *models.CategoryInput) (*models.Category, error) {
	return s.db.CreateCategory(ctx, userID, input)
}

// Update replaces a category's fields. Returns ErrNotFound when the
// category does not exist or belongs to another user; ownership is
// enforced in the query itself, so the two cases are indistinguishable
// by design.
func (s *CategoryService) Update(ctx context.Context, userID, categoryID string, input *models.CategoryInput) (*models.Category, error) {
	category, err := s.db.UpdateCategory(ctx, userID, categoryID, input)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return category, nil
}

// Delete removes a category. Returns ErrNotFound when the category does
// not exist or belongs to another user.
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID string) error {
	if err := s.db.DeleteCategory(ctx, userID, categoryID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
