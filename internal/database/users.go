package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/madigan/timely/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrNotFound indicates the requested row does not exist (or is not visible
// to the requesting user — both cases are reported identically).
var ErrNotFound = errors.New("not found")

const userColumns = `id, access_token, refresh_token, expiry_date, email, name, picture, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var refreshToken sql.NullString
	err := row.Scan(
		&user.ID,
		&user.AccessToken,
		&refreshToken,
		&user.TokenExpiry,
		&user.Email,
		&user.Name,
		&user.Picture,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.RefreshToken = refreshToken.String
	return &user, nil
}

// UpsertUser creates a user on first login or updates profile and token
// material on subsequent logins. Token fields must already be encrypted by
// the caller. The second return value reports whether the row was newly
// created, which triggers default category and settings initialization.
func (p *PostgresDB) UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error) {
	var refreshToken sql.NullString
	if user.RefreshToken != "" {
		refreshToken = sql.NullString{String: user.RefreshToken, Valid: true}
	}

	query := `
		INSERT INTO users (id, access_token, refresh_token, expiry_date, email, name, picture)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, users.refresh_token),
			expiry_date = EXCLUDED.expiry_date,
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`

	var saved models.User
	var savedRefresh sql.NullString
	var inserted bool
	err := p.db.QueryRowContext(ctx, query,
		user.ID, user.AccessToken, refreshToken, user.TokenExpiry,
		user.Email, user.Name, user.Picture,
	).Scan(
		&saved.ID,
		&saved.AccessToken,
		&savedRefresh,
		&saved.TokenExpiry,
		&saved.Email,
		&saved.Name,
		&saved.Picture,
		&saved.CreatedAt,
		&saved.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}
	saved.RefreshToken = savedRefresh.String

	log.Info().
		Str("user_id", saved.ID).
		Str("email", saved.Email).
		Bool("created", inserted).
		Msg("User upserted")

	return &saved, inserted, nil
}

// GetUserByID retrieves a user (with encrypted token material) by the
// Google subject id.
func (p *PostgresDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(p.db.QueryRowContext(ctx, query, userID))
}

// UpdateUserToken persists a refreshed access token and its expiry.
// The token must already be encrypted.
func (p *PostgresDB) UpdateUserToken(ctx context.Context, userID, encryptedAccessToken string, expiry *int64) error {
	query := `
		UPDATE users
		SET access_token = $2, expiry_date = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	result, err := p.db.ExecContext(ctx, query, userID, encryptedAccessToken, expiry)
	if err != nil {
		return fmt.Errorf("failed to update user token: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUserAndSession removes the user row (cascading to sessions,
// categories, and settings) together with the named session in one
// transaction, so logout never leaves the account half-deleted.
func (p *PostgresDB) DeleteUserAndSession(ctx context.Context, userID, sessionID string) error {
	return p.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}
