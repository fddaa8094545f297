package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations runs database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stake_info (
			session_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			max_stake INTEGER NOT NULL,
			is_capped BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, player_id)
		);

		CREATE TABLE IF NOT EXISTS stake_pairings (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			player_a_id TEXT NOT NULL,
			player_b_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			method TEXT NOT NULL DEFAULT 'tiered',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_stake_pairings_session ON stake_pairings(session_id);

		CREATE TABLE IF NOT EXISTS debt_ledger (
			id BIGSERIAL PRIMARY KEY,
			guild_id BIGINT NOT NULL,
			player_id TEXT NOT NULL,
			counterparty_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			source_type TEXT NOT NULL,
			source_id TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_debt_ledger_guild_player ON debt_ledger(guild_id, player_id);
		CREATE INDEX IF NOT EXISTS idx_debt_ledger_source ON debt_ledger(source_type, source_id);

		CREATE TABLE IF NOT EXISTS debt_reminders (
			guild_id BIGINT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			interval_minutes INTEGER NOT NULL DEFAULT 1440,
			last_sent_at TIMESTAMP,
			next_due_at TIMESTAMP
		);
	`)
	return err
}
