package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	defaultConnLifetime = time.Hour
	defaultConnIdleTime = 30 * time.Minute
	defaultPingTimeout  = 5 * time.Second
)

// NewPostgres creates a pgx/stdlib backed *sql.DB pool and validates the
// connection.
func NewPostgres(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("db: empty DSN")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(defaultMaxOpenConns)
	pool.SetMaxIdleConns(defaultMaxIdleConns)
	pool.SetConnMaxLifetime(defaultConnLifetime)
	pool.SetConnMaxIdleTime(defaultConnIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS riders (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		rfid TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		vehicle_number TEXT NOT NULL DEFAULT '',
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS parking_slots (
		slot_number INT PRIMARY KEY,
		occupied BOOLEAN NOT NULL DEFAULT FALSE,
		rider_id BIGINT REFERENCES riders(id),
		rfid TEXT,
		entry_time TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
		id BIGSERIAL PRIMARY KEY,
		transaction_id TEXT NOT NULL UNIQUE,
		rider_id BIGINT NOT NULL REFERENCES riders(id),
		kind TEXT NOT NULL,
		amount BIGINT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_transactions_rider
		ON wallet_transactions (rider_id, created_at DESC)`,
}

// EnsureSchema creates the tables on first startup and seeds the slot table
// with capacity rows numbered from 1. Seeding is idempotent: existing slot
// rows are never touched.
func EnsureSchema(ctx context.Context, pool *sql.DB, capacity int) error {
	for _, stmt := range schema {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	if capacity <= 0 {
		return nil
	}

	const seed = `
		INSERT INTO parking_slots (slot_number)
		SELECT n FROM generate_series(1, $1) AS n
		ON CONFLICT (slot_number) DO NOTHING
	`
	_, err := pool.ExecContext(ctx, seed, capacity)
	return err
}
