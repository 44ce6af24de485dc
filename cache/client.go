// Package cache wraps the shared Redis store behind a stateless gateway with
// an explicit per-operation failure policy.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"ghostlore.app/config"
	"ghostlore.app/errors"
	"ghostlore.app/metrics"
)

// FailureMode decides what a backend error does to the caller.
type FailureMode int

const (
	// FailSoft absorbs the error: reads degrade to a miss, writes to a no-op.
	FailSoft FailureMode = iota
	// FailHard surfaces the error to the caller.
	FailHard
)

// Operation names used by the failure policy and metrics.
const (
	OpGet             = "get"
	OpSet             = "set"
	OpDelete          = "delete"
	OpDeleteByPattern = "delete_by_pattern"
	OpExists          = "exists"
	OpTTL             = "ttl"
	OpIncrement       = "increment"
	OpExpire          = "expire"
)

// FailurePolicy maps each operation to its failure mode. A cache must never
// reduce availability below the store of record, so everything defaults to
// soft except Increment: the rate limiter's correctness depends on its
// return value.
type FailurePolicy map[string]FailureMode

// DefaultFailurePolicy returns the standard policy: soft everywhere,
// hard on increment.
func DefaultFailurePolicy() FailurePolicy {
	return FailurePolicy{
		OpGet:             FailSoft,
		OpSet:             FailSoft,
		OpDelete:          FailSoft,
		OpDeleteByPattern: FailSoft,
		OpExists:          FailSoft,
		OpTTL:             FailSoft,
		OpIncrement:       FailHard,
		OpExpire:          FailSoft,
	}
}

// ConnState tracks the connection lifecycle of the client.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateReady
	StateDraining
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client is a stateless gateway to the shared key-value store. It owns no
// entity state; every cached value is disposable and derived.
type Client struct {
	client  *redis.Client
	policy  FailurePolicy
	metrics *metrics.CacheMetrics

	mu    sync.Mutex
	state ConnState
}

// NewClient creates a disconnected cache client. Call Connect before use.
func NewClient(cfg *config.RedisConfig, policy FailurePolicy) *Client {
	if policy == nil {
		policy = DefaultFailurePolicy()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	return &Client{
		client:  client,
		policy:  policy,
		metrics: metrics.NewCacheMetrics("redis"),
		state:   StateDisconnected,
	}
}

// Connect dials the store and verifies it with a ping. Idempotent: calling
// it on a ready client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateReady:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		c.mu.Unlock()
		return nil
	case StateDraining, StateClosed:
		c.mu.Unlock()
		return errors.NewCacheError("cache client is closed", nil)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.setState(StateDisconnected)
		return errors.NewCacheError("failed to connect to cache store", err)
	}

	c.setState(StateReady)
	slog.Info("Cache store connected", "state", StateReady.String())
	return nil
}

// Close drains and closes the underlying connection. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateDraining
	c.mu.Unlock()

	err := c.client.Close()
	c.setState(StateClosed)
	if err != nil {
		return errors.NewCacheError("failed to close cache connection", err)
	}
	return nil
}

// State returns the current connection lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Get retrieves a value and decodes it into dest. Returns false on miss,
// backend error or decode failure; under the default soft policy the error
// is logged and absorbed.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	start := time.Now()
	defer c.observe(OpGet, start)

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			c.metrics.RecordMiss()
			return false, nil
		}
		return false, c.fail(OpGet, key, err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		slog.Error("Cache decode error", "key", key, "error", err)
		c.metrics.RecordMiss()
		return false, nil
	}

	c.metrics.RecordHit()
	return true, nil
}

// Set stores a JSON-encoded value. A zero ttl stores without expiry.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	defer c.observe(OpSet, start)

	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("Cache encode error", "key", key, "error", err)
		return nil
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return c.fail(OpSet, key, err)
	}
	return nil
}

// Delete removes a single key.
func (c *Client) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer c.observe(OpDelete, start)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return c.fail(OpDelete, key, err)
	}
	return nil
}

// DeleteByPattern removes every key matching the glob pattern. Lists keys
// first, then deletes them in one batch; a pattern with no matches is a no-op.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) error {
	start := time.Now()
	defer c.observe(OpDeleteByPattern, start)

	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return c.fail(OpDeleteByPattern, pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return c.fail(OpDeleteByPattern, pattern, err)
	}
	return nil
}

// Exists reports whether the key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	defer c.observe(OpExists, start)

	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, c.fail(OpExists, key, err)
	}
	return count > 0, nil
}

// TTL returns the remaining lifetime of a key in seconds. Negative values
// carry the store-native meaning (-1 no expiry, -2 missing key).
func (c *Client) TTL(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	defer c.observe(OpTTL, start)

	dur, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		if ferr := c.fail(OpTTL, key, err); ferr != nil {
			return -1, ferr
		}
		return -1, nil
	}
	if dur < 0 {
		return int64(dur), nil
	}
	return int64(dur / time.Second), nil
}

// Increment atomically increments a counter. This is the one operation that
// surfaces backend errors under the default policy: its return value is what
// the rate limiter enforces.
func (c *Client) Increment(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	defer c.observe(OpIncrement, start)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, c.fail(OpIncrement, key, err)
	}
	return count, nil
}

// Expire sets a TTL on an existing key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	defer c.observe(OpExpire, start)

	if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
		return c.fail(OpExpire, key, err)
	}
	return nil
}

// Ping checks the store connection off the request path.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.NewCacheError("cache ping failed", err)
	}
	return nil
}

// fail applies the failure policy to a backend error: hard operations get
// the wrapped error, soft operations log and absorb it.
func (c *Client) fail(op, key string, err error) error {
	c.metrics.RecordError(op)

	if c.policy[op] == FailHard {
		return errors.NewCacheError("cache "+op+" failed", err)
	}

	slog.Error("Cache error absorbed", "operation", op, "key", key, "error", err)
	return nil
}

func (c *Client) observe(op string, start time.Time) {
	c.metrics.RecordLatency(op, time.Since(start).Seconds())
}
