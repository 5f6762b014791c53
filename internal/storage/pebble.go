package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// keyPrefix namespaces ledger keys inside the pebble keyspace.
const keyPrefix = "ledger:"

// PebbleStore keeps values in an embedded Pebble database.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a Pebble database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error { return s.db.Close() }

func kLedger(key string) []byte { return []byte(keyPrefix + key) }

// Get implements ledger.Store.
func (s *PebbleStore) Get(_ context.Context, key string) (string, bool, error) {
	val, closer, err := s.db.Get(kLedger(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	defer closer.Close()
	// val is only valid until closer.Close.
	return string(val), true, nil
}

// Set implements ledger.Store. The write is synced to disk before returning.
func (s *PebbleStore) Set(_ context.Context, key, value string) error {
	if err := s.db.Set(kLedger(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}
