// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key snapshots are stored under.
const DefaultRedisKey = "sanctuary:snapshot"

// RedisBackend stores the latest snapshot in a Redis string key.
type RedisBackend struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string

	// TTL expires the snapshot key. Zero keeps it forever.
	TTL time.Duration
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // ping error takes precedence
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return newRedisBackend(client, opts), nil
}

func newRedisBackend(client *redis.Client, opts RedisOptions) *RedisBackend {
	key := opts.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key, ttl: opts.TTL}
}

// Name implements Backend.
func (b *RedisBackend) Name() string { return "redis" }

// Save implements Backend.
func (b *RedisBackend) Save(ctx context.Context, data []byte) error {
	return b.client.Set(ctx, b.key, data, b.ttl).Err()
}

// Load implements Backend.
func (b *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	val, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	return val, err
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
