// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package rediscache caches premium lookup results in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatewarden/gatewarden/internal/premium"
)

// Config holds cache settings.
type Config struct {
	URL string
	TTL time.Duration
}

// DefaultTTL is how long lookup results stay fresh. The upstream service
// allows name changes, so entries must expire.
const DefaultTTL = 10 * time.Minute

// Cache decorates a premium.Lookup with a Redis-backed result cache. Both
// positive and negative results are cached; faults are not. Cache failures
// degrade to a direct lookup, never to a denial.
type Cache struct {
	client *redis.Client
	inner  premium.Lookup
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Cache connected to the Redis instance at cfg.URL.
func New(cfg Config, inner premium.Lookup, logger *slog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg, inner, logger), nil
}

// NewWithClient creates a Cache with an existing client (for testing).
func NewWithClient(client *redis.Client, cfg Config, inner premium.Lookup, logger *slog.Logger) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		logger: logger,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// entry is the cached wire format. Found distinguishes a cached "no premium
// account" answer from a cache miss.
type entry struct {
	Found   bool             `json:"found"`
	Profile *premium.Profile `json:"profile,omitempty"`
}

func lookupKey(username string) string {
	return "premium:name:" + strings.ToLower(username)
}

// LookupName returns a cached result when fresh, delegating to the inner
// lookup otherwise.
func (c *Cache) LookupName(ctx context.Context, username string) (*premium.Profile, error) {
	key := lookupKey(username)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var e entry
		if jsonErr := json.Unmarshal(data, &e); jsonErr == nil {
			if !e.Found {
				return nil, nil
			}
			return e.Profile, nil
		}
		// Corrupt entry: fall through and repopulate.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("premium cache read failed, falling back to direct lookup",
			"username", username, "error", err)
	}

	profile, err := c.inner.LookupName(ctx, username)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, entry{Found: profile != nil, Profile: profile})
	return profile, nil
}

// store writes a cache entry, logging rather than failing on errors.
func (c *Cache) store(ctx context.Context, key string, e entry) {
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("premium cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("premium cache write failed", "key", key, "error", err)
	}
}

// Compile-time interface check.
var _ premium.Lookup = (*Cache)(nil)
