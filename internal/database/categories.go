package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/madigan/timely/internal/models"
	"github.com/rs/zerolog/log"
)

const categoryColumns = `id, user_id, name, color, keywords, target, created_at, updated_at`

func scanCategory(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Category, error) {
	var category models.Category
	err := scanner.Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.Color,
		pq.Array(&category.Keywords),
		&category.Target,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	if category.Keywords == nil {
		category.Keywords = []string{}
	}
	return &category, nil
}

// ListCategories returns all categories owned by the user, ordered by name.
func (p *PostgresDB) ListCategories(ctx context.Context, userID string) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 ORDER BY name`
	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// CreateCategory inserts a category for the user and returns the stored row.
func (p *PostgresDB) CreateCategory(ctx context.Context, userID string, input *models.CategoryInput) (*models.Category, error) {
	query := `
		INSERT INTO categories (user_id, name, color, keywords, target)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + categoryColumns

	category, err := scanCategory(p.db.QueryRowContext(ctx, query,
		userID, input.Name, input.Color, pq.Array(input.Keywords), input.Target))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Str("category_id", category.ID).
		Str("name", category.Name).
		Msg("Category created")

	return category, nil
}

// UpdateCategory updates a category scoped by user id and returns the
// stored row. A category that does not exist or belongs to another user
// yields ErrNotFound; the two cases are deliberately indistinguishable.
func (p *PostgresDB) UpdateCategory(ctx context.Context, userID, categoryID string, input *models.CategoryInput) (*models.Category, error) {
	query := `
		UPDATE categories
		SET name = $3, color = $4, keywords = $5, target = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING ` + categoryColumns

	category, err := scanCategory(p.db.QueryRowContext(ctx, query,
		categoryID, userID, input.Name, input.Color, pq.Array(input.Keywords), input.Target))
	if err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category scoped by user id. Missing and foreign
// rows both yield ErrNotFound.
func (p *PostgresDB) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	result, err := p.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, categoryID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertCategories inserts a batch of categories in a single transaction.
// Used to seed the default set for new users.
func (p *PostgresDB) InsertCategories(ctx context.Context, userID string, inputs []models.CategoryInput) error {
	return p.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, input := range inputs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO categories (user_id, name, color, keywords, target)
				VALUES ($1, $2, $3, $4, $5)
			`, userID, input.Name, input.Color, pq.Array(input.Keywords), input.Target)
			if err != nil {
				return fmt.Errorf("failed to insert category %q: %w", input.Name, err)
			}
		}
		return nil
	})
}
