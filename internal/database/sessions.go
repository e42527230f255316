package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/madigan/timely/internal/models"
	"github.com/rs/zerolog/log"
)

// generateSessionID returns an opaque random session identifier.
// 32 random bytes, URL-safe base64 without padding.
func generateSessionID() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// CreateSession inserts a new session row with the given lifetime and
// returns it. The session id is generated server-side and never reused.
func (p *PostgresDB) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.Session, error) {
	session := &models.Session{
		ID:     generateSessionID(),
		UserID: userID,
	}

	query := `
		INSERT INTO sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP + $3::interval)
		RETURNING created_at, expires_at
	`
	interval := fmt.Sprintf("%d seconds", int(ttl.Seconds()))
	err := p.db.QueryRowContext(ctx, query, session.ID, session.UserID, interval).
		Scan(&session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Time("expires_at", session.ExpiresAt).
		Msg("Session created")

	return session, nil
}

// GetSessionUserID resolves a session id to its owning user. Expired
// sessions are treated identically to sessions that never existed: both
// return ErrNotFound.
func (p *PostgresDB) GetSessionUserID(ctx context.Context, sessionID string) (string, error) {
	var userID string
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id FROM sessions
		WHERE session_id = $1 AND expires_at > CURRENT_TIMESTAMP
	`, sessionID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	return userID, nil
}

// DeleteSession removes a single session row. Deleting a missing session is
// not an error.
func (p *PostgresDB) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired session rows and returns the
// number deleted. The delete is idempotent, so concurrent sweeps from
// multiple instances are safe.
func (p *PostgresDB) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept sessions: %w", err)
	}
	return n, nil
}

// CountActiveSessions returns the number of unexpired sessions. Feeds
// the active-sessions gauge.
func (p *PostgresDB) CountActiveSessions(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE expires_at > CURRENT_TIMESTAMP`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}
