package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/kiosk/internal/records"
)

// DefaultRedisKey holds the snapshot when no key is configured.
const DefaultRedisKey = "kiosk:students:snapshot"

// RedisBackend stores the whole snapshot as one JSON value.
type RedisBackend struct {
	Redis *redis.Client
	Key   string
}

// NewRedisBackend creates a backend on client under key.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{Redis: client, Key: key}
}

// Load fetches and decodes the snapshot value.
func (b *RedisBackend) Load(ctx context.Context) ([]records.Record, error) {
	raw, err := b.Redis.Get(ctx, b.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, records.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", b.Key, err)
	}

	var recs []records.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.Key, err)
	}
	if recs == nil {
		recs = []records.Record{}
	}
	return recs, nil
}

// Save overwrites the snapshot value.
func (b *RedisBackend) Save(ctx context.Context, recs []records.Record) error {
	if recs == nil {
		recs = []records.Record{}
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := b.Redis.Set(ctx, b.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", b.Key, err)
	}
	return nil
}
