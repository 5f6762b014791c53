// Package storage provides key-value backends for the ledger's persistence
// port. Each backend stores the serialized chain as a single string value
// under the ledger's storage key.
//
// Three backends are available:
//   - MemoryStore: in-process, for testing and development.
//   - PebbleStore: embedded on-disk store for single-node deployments.
//   - PostgresStore: durable, for production use.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPebble   = "pebble"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Backend is a ledger store that owns resources which must be released.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string
	PebblePath  string
	PostgresURL string
}

// Open returns the backend named by cfg.Driver. An empty driver selects
// the in-memory store.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", DriverMemory:
		logger.Warn("using in-memory storage; the ledger will not survive a restart")
		return NewMemoryStore(), nil

	case DriverPebble:
		if cfg.PebblePath == "" {
			return nil, fmt.Errorf("pebble storage requires a path")
		}
		s, err := NewPebbleStore(cfg.PebblePath)
		if err != nil {
			return nil, fmt.Errorf("open pebble store: %w", err)
		}
		logger.Info("pebble storage opened", zap.String("path", cfg.PebblePath))
		return s, nil

	case DriverPostgres:
		s, err := NewPostgresStore(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres")
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
