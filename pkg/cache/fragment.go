package cache

import (
	"context"
	"time"
)

// Fragment caches one named sub-computation. On a miss it runs compute,
// stores the bytes under key, and reports StatusMiss; within ttl later calls
// get the stored bytes verbatim with StatusHit. Fields around the fragment
// stay fresh because only the compute result is cached.
func Fragment(ctx context.Context, store Store, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, Status, error) {
	if b, ok, err := store.Get(ctx, key); err != nil {
		return nil, StatusMiss, err
	} else if ok {
		return b, StatusHit, nil
	}

	b, err := compute(ctx)
	if err != nil {
		return nil, StatusMiss, err
	}
	if err := store.Set(ctx, key, b, ttl); err != nil {
		return nil, StatusMiss, err
	}
	return b, StatusMiss, nil
}
