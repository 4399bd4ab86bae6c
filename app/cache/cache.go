// Package cache provides the response cache used for rendered feed pages.
package cache

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
)

// Cache stores opaque values with a time to live.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every entry this cache owns.
	Clear(ctx context.Context) error
	Close() error
}

// Remember returns the cached value for key, or calls load and caches its
// result for ttl. A non-positive ttl bypasses the cache. Cache failures are
// logged and never fail the request.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if c == nil || ttl <= 0 {
		return load()
	}

	if raw, ok, err := c.Get(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache read failed")
	} else if ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
		log.WithField("key", key).Warn("discarding undecodable cache entry")
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return value, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return value, nil
}
