// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package platform opens the stores and transports selected by a
// config.Config and builds the auth components on top of them.
package platform

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/auth/memory"
	"github.com/authcore/authcore/internal/auth/postgres"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/fault"
	"github.com/authcore/authcore/internal/notify"
	"github.com/authcore/authcore/internal/store"
	"github.com/authcore/authcore/internal/token"
)

// Resources holds the components built from a Config and the connections
// backing them.
type Resources struct {
	Users    auth.UserRepository
	Hasher   *auth.BcryptHasher
	Policy   *auth.Policy
	Tokens   *token.Store
	Notifier auth.Notifier

	logger  *slog.Logger
	pg      *pgxpool.Pool
	redis   *token.RedisBackend
	nc      *nats.Conn
	closers []func() error

	closeOnce sync.Once
	closeErr  error
}

// Open connects to every configured store, retrying unreachable ones per
// cfg.Startup, and assembles the components. On failure anything already
// opened is closed.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (res *Resources, err error) {
	if cfg == nil {
		return nil, oops.Code("PLATFORM_INVALID_CONFIG").Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resources{logger: logger}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	if r.Hasher, err = auth.NewBcryptHasher(cfg.Hasher.Cost); err != nil {
		return nil, err
	}
	if r.Policy, err = auth.NewPolicy(cfg.Registration.MinPasswordLength, cfg.Registration.AllowedDomains); err != nil {
		return nil, err
	}
	if err = r.openUsers(ctx, cfg); err != nil {
		return nil, err
	}
	if err = r.openTokens(ctx, cfg); err != nil {
		return nil, err
	}
	if err = r.openNotifier(ctx, cfg); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resources) openUsers(ctx context.Context, cfg *config.Config) error {
	if !cfg.UsesPostgres() {
		r.Users = memory.NewUserRepository()
		r.logger.Warn("no database configured, users are kept in memory")
		return nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg.Database.URL); err != nil {
			return err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return oops.Code("PLATFORM_OPEN_FAILED").With("store", "postgres").Wrap(err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return oops.Code("PLATFORM_OPEN_FAILED").With("store", "postgres").Wrap(err)
	}
	r.pg = pool
	r.closers = append(r.closers, func() error {
		pool.Close()
		return nil
	})

	err = withRetry(ctx, cfg.Startup, r.logger, "postgres", func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fault.StoreUnavailable("postgres", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.Users = postgres.NewUserRepository(pool)
	r.logger.Info("user store ready", "store", "postgres")
	return nil
}

func migrate(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	upErr := m.Up()
	closeErr := m.Close()
	if upErr != nil {
		return upErr
	}
	return closeErr
}

func (r *Resources) openTokens(ctx context.Context, cfg *config.Config) error {
	opts := []token.Option{
		token.WithTTL(cfg.Tokens.TTL),
		token.WithPrefix(cfg.Tokens.Prefix),
		token.WithLogger(r.logger),
	}

	var backend token.Backend
	switch cfg.Tokens.Backend {
	case config.BackendRedis:
		pool := token.NewRedisPool(cfg.Redis)
		r.closers = append(r.closers, pool.Close)
		r.redis = token.NewRedisBackend(pool)

		if err := withRetry(ctx, cfg.Startup, r.logger, "redis", r.redis.Ping); err != nil {
			return err
		}
		backend = r.redis
	default:
		mem := token.NewMemoryBackend()
		if cfg.Tokens.SweepInterval > 0 {
			r.closers = append(r.closers, startSweeper(mem, cfg.Tokens.SweepInterval, r.logger))
		}
		backend = mem
	}

	tokens, err := token.NewStore(backend, opts...)
	if err != nil {
		return err
	}
	r.Tokens = tokens
	r.logger.Info("token store ready", "backend", cfg.Tokens.Backend, "ttl", cfg.Tokens.TTL)
	return nil
}

// startSweeper drops expired entries from mem every interval until the
// returned stop function is called.
func startSweeper(mem *token.MemoryBackend, interval time.Duration, logger *slog.Logger) func() error {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if n := mem.Sweep(); n > 0 {
					logger.Debug("expired confirmation tokens swept", "count", n)
				}
			}
		}
	}()

	return func() error {
		close(stop)
		<-done
		return nil
	}
}

func (r *Resources) openNotifier(ctx context.Context, cfg *config.Config) error {
	if cfg.Notifier.Kind != config.NotifierJetStream {
		r.Notifier = notify.NewLogNotifier(r.logger)
		return nil
	}

	err := withRetry(ctx, cfg.Startup, r.logger, "nats", func(context.Context) error {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("authcore"),
			nats.Timeout(cfg.NATS.ConnectTimeout),
		)
		if err != nil {
			return fault.StoreUnavailable("nats", err)
		}
		r.nc = nc
		return nil
	})
	if err != nil {
		return err
	}
	nc := r.nc
	r.closers = append(r.closers, func() error {
		return nc.Drain()
	})

	js, err := nc.JetStream()
	if err != nil {
		return oops.Code("PLATFORM_OPEN_FAILED").With("store", "nats").Wrap(err)
	}
	if err := notify.EnsureStream(ctx, js, cfg.NATS.Stream, cfg.NATS.Subject); err != nil {
		return err
	}

	n, err := notify.NewJetStreamNotifier(js,
		notify.WithSubject(cfg.NATS.Subject),
		notify.WithLogger(r.logger),
	)
	if err != nil {
		return err
	}
	r.Notifier = n
	r.logger.Info("notifier ready", "notifier", "jetstream", "subject", cfg.NATS.Subject)
	return nil
}

// withRetry runs op until it succeeds, fails with an error other than
// fault.KindStoreUnavailable, or the attempts in s are exhausted.
func withRetry(ctx context.Context, s config.StartupConfig, logger *slog.Logger, name string, op func(context.Context) error) error {
	attempts := s.Attempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := s.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	b := retry.WithMaxRetries(attempts-1, retry.NewExponential(backoff))

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if fault.KindOf(err) != fault.KindStoreUnavailable {
			return err
		}
		logger.WarnContext(ctx, "store not reachable yet", "store", name, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return oops.Code("PLATFORM_OPEN_FAILED").With("store", name).With("attempts", attempt).Wrap(err)
	}
	return nil
}

// Ready pings every remote store in use.
func (r *Resources) Ready(ctx context.Context) error {
	var errs []error
	if r.pg != nil {
		if err := r.pg.Ping(ctx); err != nil {
			errs = append(errs, fault.StoreUnavailable("postgres", err))
		}
	}
	if r.redis != nil {
		if err := r.redis.Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.nc != nil && !r.nc.IsConnected() {
		errs = append(errs, fault.StoreUnavailable("nats", nats.ErrConnectionClosed))
	}
	return errors.Join(errs...)
}

// Close releases resources in the reverse order they were opened. Calling
// Close more than once returns the first result.
func (r *Resources) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		for i := len(r.closers) - 1; i >= 0; i-- {
			if err := r.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			r.closeErr = oops.Code("PLATFORM_CLOSE_FAILED").Wrap(errors.Join(errs...))
		}
	})
	return r.closeErr
}
