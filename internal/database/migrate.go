package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// migration is a named, idempotent-by-ledger schema change. Migrations run
// in order inside individual transactions; the ledger records each name as
// in-progress before the statements run and flips it to applied afterwards,
// so a crash mid-migration is visible on the next startup.
type migration struct {
	Name string
	SQL  string
}

var migrations = []migration{
	{
		Name: "202508271438_initial_schema",
		SQL: `
			CREATE TABLE users (
				id TEXT PRIMARY KEY,
				access_token TEXT NOT NULL,
				refresh_token TEXT,
				expiry_date BIGINT,
				email TEXT NOT NULL,
				name TEXT NOT NULL,
				picture TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE sessions (
				session_id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				expires_at TIMESTAMP NOT NULL
			);

			CREATE TABLE categories (
				id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				color TEXT NOT NULL CHECK (color ~ '^#[0-9A-Fa-f]{6}$'),
				keywords TEXT[] NOT NULL DEFAULT '{}',
				target INTEGER NOT NULL CHECK (target >= 0 AND target <= 100),
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX idx_sessions_user_id ON sessions(user_id);
			CREATE INDEX idx_sessions_expires_at ON sessions(expires_at);
			CREATE INDEX idx_categories_user_id ON categories(user_id);
		`,
	},
	{
		Name: "202509011459_important_event_settings",
		SQL: `
			CREATE TABLE important_event_settings (
				id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				keywords TEXT[] NOT NULL DEFAULT '{}',
				enabled BOOLEAN NOT NULL DEFAULT true,
				display_limit INTEGER NOT NULL DEFAULT 3 CHECK (display_limit >= 1 AND display_limit <= 20),
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);

			CREATE UNIQUE INDEX idx_important_event_settings_user
				ON important_event_settings(user_id);
		`,
	},
}

const (
	migrationStatusInProgress = "in-progress"
	migrationStatusApplied    = "applied"
)

// Migrate applies all pending migrations, recording them in the
// schema_migrations ledger. Safe to call on every startup.
func (p *PostgresDB) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}

	for _, m := range migrations {
		applied, err := p.migrationStatus(ctx, m.Name)
		if err != nil {
			return err
		}
		switch applied {
		case migrationStatusApplied:
			continue
		case migrationStatusInProgress:
			return fmt.Errorf("migration %s is marked in-progress; a previous run crashed mid-migration and needs manual repair", m.Name)
		}

		if err := p.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Msg("Migration applied")
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}

func (p *PostgresDB) migrationStatus(ctx context.Context, name string) (string, error) {
	var status string
	err := p.db.QueryRowContext(ctx,
		`SELECT status FROM schema_migrations WHERE name = $1`, name).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read migration ledger: %w", err)
	}
	return status, nil
}

func (p *PostgresDB) applyMigration(ctx context.Context, m migration) error {
	// The in-progress marker is committed before the schema change so a
	// crash between the two is observable.
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, status) VALUES ($1, $2)`,
		m.Name, migrationStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to record migration start: %w", err)
	}

	return p.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE schema_migrations SET status = $1, applied_at = CURRENT_TIMESTAMP WHERE name = $2`,
			migrationStatusApplied, m.Name)
		return err
	})
}
