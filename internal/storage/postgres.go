package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore persists values in the ledger_store table. The schema lives
// in migrations/001_ledger_store.up.sql.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to databaseURL and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStoreFromPool(pool, logger), nil
}

// NewPostgresStoreFromPool wraps an existing connection pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Get implements ledger.Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		"SELECT value FROM ledger_store WHERE key = $1", key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get ledger_store %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements ledger.Store. A single upsert statement keeps the write
// atomic.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_store (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value,
	); err != nil {
		return fmt.Errorf("set ledger_store %q: %w", key, err)
	}

	s.logger.Debug("ledger_store written",
		zap.String("key", key),
		zap.Int("bytes", len(value)),
	)
	return nil
}
