// Package store implements the persistent keyed store for users, rooms, and
// games on top of Redis. Values are stored as JSON; every command runs behind
// a circuit breaker so a struggling Redis degrades loudly instead of hanging
// callers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/metrics"
)

// Error kinds surfaced by the adapter. Everything else is wrapped and
// surfaced as-is for the caller to log and translate.
var (
	// ErrNotFound is the sole signal of absence.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned by PutIfAbsent when the key already exists.
	ErrDuplicate = errors.New("store: duplicate value")
	// ErrParse is returned when a stored value cannot be decoded.
	ErrParse = errors.New("store: failed to parse value")
)

// Config holds the Redis connection parameters.
type Config struct {
	Addr     string
	Username string
	Password string
}

// Client wraps a Redis connection with a circuit breaker.
type Client struct {
	rdb *redis.Client
	cb  *gobreaker.CircuitBreaker
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	st := gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     15 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues("redis").Set(stateVal)
		},
	}

	logging.Info(context.Background(), "Connected to Redis", zap.String("addr", cfg.Addr))
	return &Client{
		rdb: rdb,
		cb:  gobreaker.NewCircuitBreaker(st),
	}, nil
}

// Redis returns the underlying client for collaborators that need raw access
// (e.g. the rate limiter store).
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// Ping checks connectivity. Used by readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.rdb.Ping(ctx).Err()
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			metrics.CircuitBreakerFailures.WithLabelValues("redis").Inc()
		}
		return err
	}
	return nil
}

// Close shuts down the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get fetches and decodes the value at key. A value that fails to decode is
// treated as absent: the raw bytes are useless to the caller, so we log the
// decode error and report ErrNotFound.
func Get[T any](ctx context.Context, c *Client, key string) (T, error) {
	var zero T

	res, err := c.cb.Execute(func() (interface{}, error) {
		raw, err := c.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return raw, err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("redis GET %q: %w", key, err)
	}

	var value T
	if err := json.Unmarshal([]byte(res.(string)), &value); err != nil {
		logging.Error(ctx, "Failed to decode stored value", zap.String("key", key), zap.Error(err))
		return zero, ErrNotFound
	}
	return value, nil
}

// GetMany fetches and decodes the values at keys, preserving order. Any key
// that is missing or fails to decode fails the whole call with ErrParse.
func GetMany[T any](ctx context.Context, c *Client, keys []string) ([]T, error) {
	if len(keys) == 0 {
		return []T{}, nil
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.rdb.MGet(ctx, keys...).Result()
	})
	if err != nil {
		return nil, fmt.Errorf("redis MGET: %w", err)
	}

	raws := res.([]interface{})
	values := make([]T, 0, len(raws))
	for i, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			logging.Error(ctx, "Missing value in MGET result", zap.String("key", keys[i]))
			return nil, ErrParse
		}
		var value T
		if err := json.Unmarshal([]byte(s), &value); err != nil {
			logging.Error(ctx, "Failed to decode stored value", zap.String("key", keys[i]), zap.Error(err))
			return nil, ErrParse
		}
		values = append(values, value)
	}
	return values, nil
}

// Put upserts the encoded value at key and returns it.
func Put[T any](ctx context.Context, c *Client, key string, value T) (T, error) {
	var zero T

	encoded, err := json.Marshal(value)
	if err != nil {
		logging.Error(ctx, "Failed to encode value", zap.String("key", key), zap.Error(err))
		return zero, ErrParse
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, key, encoded, 0).Err()
	})
	if err != nil {
		return zero, fmt.Errorf("redis SET %q: %w", key, err)
	}
	return value, nil
}

// PutIfAbsent inserts the encoded value at key, failing with ErrDuplicate if
// the key already holds a value.
func PutIfAbsent[T any](ctx context.Context, c *Client, key string, value T) (T, error) {
	var zero T

	encoded, err := json.Marshal(value)
	if err != nil {
		logging.Error(ctx, "Failed to encode value", zap.String("key", key), zap.Error(err))
		return zero, ErrParse
	}

	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.rdb.SetNX(ctx, key, encoded, 0).Result()
	})
	if err != nil {
		return zero, fmt.Errorf("redis SETNX %q: %w", key, err)
	}
	if !res.(bool) {
		return zero, ErrDuplicate
	}
	return value, nil
}

// Delete removes key. Deleting an absent key succeeds.
func Delete(ctx context.Context, c *Client, key string) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.rdb.Del(ctx, key).Err()
	})
	if err != nil {
		return fmt.Errorf("redis DEL %q: %w", key, err)
	}
	return nil
}
