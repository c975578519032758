// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/fault"
)

// RedisConfig configures the Redis connection pool.
type RedisConfig struct {
	Address        string        `koanf:"address"`
	Password       string        `koanf:"password"`
	DB             int           `koanf:"db"`
	MaxIdle        int           `koanf:"max_idle"`
	MaxActive      int           `koanf:"max_active"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// NewRedisPool creates a redigo pool. A tcp:// prefix on the address is ignored.
func NewRedisPool(cfg RedisConfig) *redis.Pool {
	addr := strings.TrimPrefix(cfg.Address, "tcp://")
	opts := []redis.DialOption{redis.DialDatabase(cfg.DB)}
	if cfg.Password != "" {
		opts = append(opts, redis.DialPassword(cfg.Password))
	}
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, redis.DialConnectTimeout(cfg.ConnectTimeout))
	}

	return &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		MaxActive:   cfg.MaxActive,
		IdleTimeout: cfg.IdleTimeout,
		Wait:        cfg.MaxActive > 0,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// RedisBackend implements Backend with SET EX and GETDEL.
type RedisBackend struct {
	pool *redis.Pool
}

// NewRedisBackend creates a RedisBackend on pool.
func NewRedisBackend(pool *redis.Pool) *RedisBackend {
	return &RedisBackend{pool: pool}
}

// SetEX stores value under key with an expiry.
func (b *RedisBackend) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return classify(err, "get connection")
	}
	defer conn.Close()

	args := []any{key, value}
	if ttl%time.Second == 0 {
		args = append(args, "EX", int64(ttl/time.Second))
	} else {
		args = append(args, "PX", ttl.Milliseconds())
	}
	if _, err := redis.String(redis.DoContext(conn, ctx, "SET", args...)); err != nil {
		return classify(err, "set")
	}
	return nil
}

// GetDel atomically reads and deletes key.
func (b *RedisBackend) GetDel(ctx context.Context, key string) (string, bool, error) {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return "", false, classify(err, "get connection")
	}
	defer conn.Close()

	value, err := redis.String(redis.DoContext(conn, ctx, "GETDEL", key))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err, "getdel")
	}
	return value, true, nil
}

// Ping checks connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return classify(err, "get connection")
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		return classify(err, "ping")
	}
	return nil
}

// classify maps server error replies to internal errors and everything else
// (dial, I/O, pool exhaustion) to fault.StoreUnavailable.
func classify(err error, operation string) error {
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return oops.Code("REDIS_COMMAND_FAILED").With("operation", operation).Wrap(err)
	}
	return oops.With("operation", operation).Wrap(fault.StoreUnavailable("redis", err))
}
