// Package database provides database access layers for PostgreSQL and Redis.
// PostgreSQL holds persistent user data: accounts with encrypted OAuth
// tokens, login sessions, categories, and important-event settings. Redis
// holds short-lived coordination state: OAuth CSRF states, rate-limit
// counters, and the calendar-list cache.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/madigan/timely/pkg/config"
	"github.com/madigan/timely/pkg/utils"
	"github.com/rs/zerolog/log"
)

// TxFunc is a function that runs within a database transaction.
// Used with WithTransaction to ensure atomic operations.
type TxFunc func(tx *sql.Tx) error

// Querier abstracts *sql.DB and *sql.Tx so the same query code works both
// inside and outside transactions.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PostgresDB wraps a PostgreSQL connection pool with high-level methods for
// users, sessions, categories, and important-event settings.
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB creates a new PostgreSQL connection with automatic retry.
// Exponential backoff handles transient failures during startup (e.g. the
// database container not being ready yet).
//
// Connection pool settings:
//   - MaxOpenConns: from configuration (default: 25)
//   - MaxIdleConns: half of MaxOpenConns
//   - ConnMaxLifetime: 1 hour
func NewPostgresDB(cfg *config.DatabaseConfig) (*PostgresDB, error) {
	var db *sql.DB
	var connErr error

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	retryConfig := utils.DatabaseRetryConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.InitialDelay = 100 * time.Millisecond
	retryConfig.MaxDelay = 3 * time.Second

	err := utils.Retry(ctx, retryConfig, func() error {
		var err error
		db, err = sql.Open("postgres", cfg.DSN())
		if err != nil {
			connErr = err
			log.Warn().Err(err).Msg("Failed to open database connection, retrying...")
			return err
		}

		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns / 2)
		db.SetConnMaxLifetime(time.Hour)

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := db.PingContext(pingCtx); err != nil {
			connErr = err
			log.Warn().Err(err).Msg("Failed to ping database, retrying...")
			db.Close()
			return err
		}

		return nil
	})

	if err != nil {
		if connErr != nil {
			return nil, fmt.Errorf("failed to connect to database after retries: %w", connErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")

	return &PostgresDB{db: db}, nil
}

// Close closes the database connection and releases all resources.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping checks if the database connection is alive. Used by the readiness
// endpoint.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// WithTransaction executes a function within a database transaction.
// The transaction is committed on success and rolled back on error or
// panic.
func (p *PostgresDB) WithTransaction(ctx context.Context, fn TxFunc) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
