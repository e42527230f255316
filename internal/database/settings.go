package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/madigan/timely/internal/models"
)

const settingsColumns = `id, user_id, keywords, enabled, display_limit, created_at, updated_at`

func scanSettings(row *sql.Row) (*models.ImportantEventSettings, error) {
	var settings models.ImportantEventSettings
	err := row.Scan(
		&settings.ID,
		&settings.UserID,
		pq.Array(&settings.Keywords),
		&settings.Enabled,
		&settings.DisplayLimit,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan settings: %w", err)
	}
	if settings.Keywords == nil {
		settings.Keywords = []string{}
	}
	return &settings, nil
}

// GetImportantEventSettings retrieves the user's settings row, or
// ErrNotFound when the user has none yet.
func (p *PostgresDB) GetImportantEventSettings(ctx context.Context, userID string) (*models.ImportantEventSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM important_event_settings WHERE user_id = $1`
	return scanSettings(p.db.QueryRowContext(ctx, query, userID))
}

// CreateImportantEventSettings inserts a settings row for the user.
// The unique index on user_id guarantees at most one row per user.
func (p *PostgresDB) CreateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error) {
	query := `
		INSERT INTO important_event_settings (user_id, keywords, enabled, display_limit)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + settingsColumns

	settings, err := scanSettings(p.db.QueryRowContext(ctx, query,
		userID, pq.Array(input.Keywords), input.Enabled, input.DisplayLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}
	return settings, nil
}

// UpdateImportantEventSettings updates the user's settings row and returns
// it, or ErrNotFound when the row does not exist.
func (p *PostgresDB) UpdateImportantEventSettings(ctx context.Context, userID string, input *models.ImportantEventSettingsInput) (*models.ImportantEventSettings, error) {
	query := `
		UPDATE important_event_settings
		SET keywords = $2, enabled = $3, display_limit = $4, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
		RETURNING ` + settingsColumns

	return scanSettings(p.db.QueryRowContext(ctx, query,
		userID, pq.Array(input.Keywords), input.Enabled, input.DisplayLimit))
}
