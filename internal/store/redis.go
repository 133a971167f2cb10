// Package store provides storage backends for Simsar.
//
// This file implements a Redis-backed session store with idle expiry.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "simsar:session:"

// RedisStore keeps each session as a JSON value whose TTL is refreshed on every access.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis URL given by WithRedisURL.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis URL not set")
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err)
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client. A non-positive ttl selects
// DefaultSessionTTL.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, snap *models.SessionSnapshot) error {
	if err := validateID(snap.ID); err != nil {
		return err
	}
	stamp(snap)
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(snap.ID), data, s.ttl).Result()
	if err != nil {
		slog.Error("RedisStore Create failed", "error", err, "id", snap.ID)
		return fmt.Errorf("failed to create session %s: %w", snap.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, snap.ID)
	}
	return nil
}

// Get implements Store. Reading refreshes the TTL.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	key := s.key(id)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore Get failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	snap, err := decodeSnapshot(val)
	if err != nil {
		return nil, err
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		slog.Warn("RedisStore Get: TTL refresh failed", "error", err, "id", id)
	}
	return snap, nil
}

// Update implements Store using WATCH/MULTI/EXEC.
func (s *RedisStore) Update(ctx context.Context, snap *models.SessionSnapshot) error {
	key := s.key(snap.ID)
	next := *snap
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return wrapNotFound(snap.ID)
		}
		if err != nil {
			return err
		}
		stored, err := decodeSnapshot(val)
		if err != nil {
			return err
		}
		if stored.Version != snap.Version {
			return fmt.Errorf("%w: %s has version %d, got %d", ErrVersionConflict, snap.ID, stored.Version, snap.Version)
		}
		next.Version++
		next.UpdatedAt = time.Now().UTC()
		data, err := encodeSnapshot(&next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s changed concurrently", ErrVersionConflict, snap.ID)
	}
	if err != nil {
		return err
	}
	*snap = next
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}
