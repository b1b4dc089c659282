// Package checkpoint provides a small key/value cache the CLI driver uses
// to remember which shards it has already migrated across runs, so a
// restarted `migrate copy`/`migrate index` invocation can skip
// already-done work before even issuing a HEAD. It generalizes a
// redis-backed Store[Key, Value] cache used elsewhere in this codebase
// for the same serialize/deserialize-over-redis concern.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when key has no recorded checkpoint.
var ErrNotFound = errors.New("checkpoint: not found")

// DefaultExpire bounds how long a checkpoint is remembered before it must
// be re-derived; migrated shards don't change, so this is generous.
const DefaultExpire = 30 * 24 * time.Hour

// Client is the subset of the redis client the Store needs, narrowed the
// same way a redis client is narrowed elsewhere in this codebase.
type Client interface {
	Get(context.Context, string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// Store wraps a redis-compatible client to cache arbitrary key/value pairs
// under caller-supplied (de)serialization.
type Store[Key, Value any] struct {
	fromRedis func(string) (Value, error)
	toRedis   func(Value) (string, error)
	keyString func(Key) string
	client    Client
}

var _ Client = (*goredis.Client)(nil)

// NewStore returns a Store using the given (de)serialization functions.
func NewStore[Key, Value any](
	fromRedis func(string) (Value, error),
	toRedis func(Value) (string, error),
	keyString func(Key) string,
	client Client,
) *Store[Key, Value] {
	return &Store[Key, Value]{fromRedis, toRedis, keyString, client}
}

// Get returns the deserialized checkpoint for key, or ErrNotFound.
func (s *Store[Key, Value]) Get(ctx context.Context, key Key) (Value, error) {
	data, err := s.client.Get(ctx, s.keyString(key)).Result()
	if err != nil {
		var zero Value
		if err == goredis.Nil {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("accessing redis: %w", err)
	}
	return s.fromRedis(data)
}

// Set records value as the checkpoint for key, expiring after
// DefaultExpire.
func (s *Store[Key, Value]) Set(ctx context.Context, key Key, value Value) error {
	data, err := s.toRedis(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.keyString(key), data, DefaultExpire).Err(); err != nil {
		return fmt.Errorf("accessing redis: %w", err)
	}
	return nil
}

// NewShardStore returns a Store checkpointing a completion marker
// ("ok") per shard CID string, the shape both the copy and index
// checkpoints use.
func NewShardStore(client Client) *Store[string, string] {
	return NewStore(
		func(s string) (string, error) { return s, nil },
		func(s string) (string, error) { return s, nil },
		func(k string) string { return "shard-migrator:" + k },
		client,
	)
}
