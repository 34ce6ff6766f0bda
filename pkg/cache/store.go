// Package cache provides the shared key/value backing store behind the three
// caching tiers (manual, per-view, fragment). The store is injected into
// whatever needs it; there is no package-level instance.
package cache

import (
	"context"
	"time"
)

// Status labels a lookup outcome in responses.
type Status string

const (
	StatusHit  Status = "HIT"
	StatusMiss Status = "MISS"
)

// Store is the backing contract every tier shares. Get reports a miss with
// ok=false. Concurrent get-then-set races are tolerated: overlapping misses
// may each recompute and each write, last write wins.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
