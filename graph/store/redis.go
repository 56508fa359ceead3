package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis.
//
// Each checkpoint is one JSON string under <prefix>cp:<threadID>; a sorted
// set under <prefix>index records thread identifiers for List, scored by
// expiry so entries whose key has lapsed are pruned lazily. Thread keys live
// in their own namespace, so no thread identifier can name the index.
type RedisStore[S any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix string
	ttl    time.Duration
}

// WithPrefix sets the key prefix. Default "threadgraph:".
func WithPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		c.prefix = prefix
	}
}

// WithTTL expires idle threads after ttl. Zero (the default) keeps them
// forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.ttl = ttl
	}
}

// NewRedisStore connects to a single Redis server.
func NewRedisStore[S any](addr, password string, db int, opts ...RedisOption) *RedisStore[S] {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient[S](client, opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient[S any](client redis.UniversalClient, opts ...RedisOption) *RedisStore[S] {
	cfg := redisConfig{prefix: "threadgraph:"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RedisStore[S]{client: client, prefix: cfg.prefix, ttl: cfg.ttl}
}

func (r *RedisStore[S]) key(threadID string) string {
	return r.prefix + "cp:" + threadID
}

func (r *RedisStore[S]) indexKey() string {
	return r.prefix + "index"
}

// redisCheckpoint is the JSON value stored per thread.
type redisCheckpoint struct {
	ThreadID  string          `json:"thread_id"`
	Step      int             `json:"step"`
	Node      string          `json:"node"`
	Next      string          `json:"next,omitempty"`
	State     json.RawMessage `json:"state"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Save implements Store. The value and the index entry are written in one
// MULTI/EXEC transaction.
func (r *RedisStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	rec, err := encode(cp)
	if err != nil {
		return err
	}
	data, err := json.Marshal(redisCheckpoint{
		ThreadID:  rec.ThreadID,
		Step:      rec.Step,
		Node:      rec.Node,
		Next:      rec.Next,
		State:     rec.State,
		UpdatedAt: rec.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	score := float64(time.Now().Add(r.ttl).Unix())
	if r.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(cp.ThreadID), data, r.ttl)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: score, Member: cp.ThreadID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load implements Store.
func (r *RedisStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
	val, err := r.client.Get(ctx, r.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Checkpoint[S]{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var rc redisCheckpoint
	if err := json.Unmarshal(val, &rc); err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return decode[S](record{
		ThreadID:  threadID,
		Step:      rc.Step,
		Node:      rc.Node,
		Next:      rc.Next,
		State:     rc.State,
		UpdatedAt: rc.UpdatedAt,
	})
}

// List implements Lister. Expired threads are removed from the index first.
func (r *RedisStore[S]) List(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired threads: %w", err)
	}

	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a thread's checkpoint.
func (r *RedisStore[S]) Delete(ctx context.Context, threadID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(threadID))
		pipe.ZRem(ctx, r.indexKey(), threadID)
		return nil
	})
	return err
}

// Close closes the Redis client.
func (r *RedisStore[S]) Close() error {
	return r.client.Close()
}
