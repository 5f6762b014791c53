package ledger

import (
	"context"
	"time"
)

// Store is the persistence port. The ledger keeps its whole serialized chain
// under one key. Implementations live in internal/storage.
type Store interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set replaces the value stored under key. Writes must be atomic.
	Set(ctx context.Context, key, value string) error
}

// Clock supplies block timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// TimestampLayout is the layout of Block.Timestamp: ISO-8601 with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
