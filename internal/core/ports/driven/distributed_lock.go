package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances. The ingestion
// pipeline uses it to serialise concurrent ingestions of the same URL,
// so "delete old chunks, insert new chunks" never interleaves.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held elsewhere.
	// The lock expires automatically after TTL.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; TTL expiry covers
	// crashed holders. Safe to call when the lock is not held.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock.
	// Returns an error if the lock is not held by this instance.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
