// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

// Package cache provides the Redis-backed recommendation cache.
//
// Values are opaque byte payloads keyed by username with a fixed TTL; once
// the TTL elapses Redis treats the key as absent, so no explicit deletion
// is needed for expiry. A missing key is reported distinctly from an empty
// payload: an empty cached list is a valid value meaning "no
// recommendations computed".
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBadBatch reports a malformed batch request. The batch is rejected up
// front; no partial application happens.
var ErrBadBatch = errors.New("cache: batch keys and values must align and be non-empty")

// Config holds cache connection settings.
type Config struct {
	Addr string
	DB   int

	// TTL is the lifetime of every entry from write time.
	TTL time.Duration
}

// Client is the Redis-backed cache client. Safe for concurrent use.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Client{rdb: rdb, ttl: cfg.TTL}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Client {
	return &Client{rdb: rdb, ttl: ttl}
}

// Get returns the value stored for key. found is false when the key is
// absent or expired.
func (c *Client) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	return val, true, nil
}

// BatchGet returns values aligned to keys in one round trip; absent keys
// yield a nil entry at their position.
func (c *Client) BatchGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, ErrBadBatch
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache mget: %w", err)
	}

	out := make([][]byte, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = []byte(s)
		}
	}
	return out, nil
}

// Set stores value under key with the configured TTL.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// SetBatch stores values under keys in one pipelined round trip. Keys and
// values must align; a mismatched batch is rejected before any write.
func (c *Client) SetBatch(ctx context.Context, keys []string, values [][]byte) error {
	if len(keys) == 0 || len(keys) != len(values) {
		return ErrBadBatch
	}

	pipe := c.rdb.Pipeline()
	for i, k := range keys {
		pipe.Set(ctx, k, values[i], c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache batch set: %w", err)
	}
	return nil
}

// Del removes keys. Deleting an absent key is not an error.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return ErrBadBatch
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
