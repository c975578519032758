// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package platform

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/authcore/authcore/internal/auth/memory"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/fault"
	"github.com/authcore/authcore/internal/notify"
	"github.com/authcore/authcore/pkg/errutil"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Hasher.Cost = 4
	cfg.Startup = config.StartupConfig{Attempts: 2, Backoff: 10 * time.Millisecond}
	return &cfg
}

func TestOpen_NilConfig(t *testing.T) {
	_, err := Open(context.Background(), nil, nil)
	errutil.AssertErrorCode(t, err, "PLATFORM_INVALID_CONFIG")
}

func TestOpen_Memory(t *testing.T) {
	defer goleak.VerifyNone(t)

	res, err := Open(context.Background(), testConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.IsType(t, &memory.UserRepository{}, res.Users)
	assert.IsType(t, &notify.LogNotifier{}, res.Notifier)
	assert.Equal(t, 4, res.Hasher.Cost())
	assert.Equal(t, 24*time.Hour, res.Tokens.TTL())
	require.NoError(t, res.Ready(context.Background()))

	ctx := context.Background()
	tok, err := res.Tokens.Issue(ctx, 9)
	require.NoError(t, err)
	id, err := res.Tokens.Consume(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	require.NoError(t, res.Close())
	require.NoError(t, res.Close())
}

func TestOpen_MemorySweeperDropsExpiredTokens(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	cfg.Tokens.TTL = 10 * time.Millisecond
	cfg.Tokens.SweepInterval = 5 * time.Millisecond

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	res, err := Open(context.Background(), cfg, logger)
	require.NoError(t, err)

	_, err = res.Tokens.Issue(context.Background(), 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("expired confirmation tokens swept"))
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, res.Close())
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Tokens.Backend = config.BackendRedis
	cfg.Redis.Address = mr.Addr()

	res, err := Open(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })

	require.NoError(t, res.Ready(context.Background()))

	tok, err := res.Tokens.Issue(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cfg.Tokens.Prefix+tok))

	mr.Close()
	err = res.Ready(context.Background())
	require.Error(t, err)
	assert.Equal(t, fault.KindStoreUnavailable, fault.KindOf(err))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.Tokens.Backend = config.BackendRedis
	cfg.Redis.Address = addr
	cfg.Redis.ConnectTimeout = 100 * time.Millisecond

	var buf bytes.Buffer
	_, err := Open(context.Background(), cfg, slog.New(slog.NewJSONHandler(&buf, nil)))
	require.Error(t, err)
	assert.Equal(t, fault.KindStoreUnavailable, fault.KindOf(err))
	errutil.AssertErrorContext(t, err, "store", "redis")
	errutil.AssertErrorContext(t, err, "attempts", 2)

	entries := errutil.LogEntries(t, &buf)
	warnings := 0
	for _, e := range entries {
		if e["msg"] == "store not reachable yet" {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestOpen_InvalidPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Registration.AllowedDomains = []string{"[unclosed"}

	_, err := Open(context.Background(), cfg, slog.New(slog.DiscardHandler))
	errutil.AssertErrorCode(t, err, "POLICY_INVALID")
}

func TestOpen_InvalidDatabaseURL(t *testing.T) {
	cfg := testConfig()
	cfg.Database.URL = "postgres://%zz"

	_, err := Open(context.Background(), cfg, slog.New(slog.DiscardHandler))
	errutil.AssertErrorCode(t, err, "PLATFORM_OPEN_FAILED")
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), config.StartupConfig{Attempts: 5, Backoff: time.Millisecond},
		slog.New(slog.DiscardHandler), "test", func(context.Context) error {
			calls++
			return fault.Public("BROKEN", "broken")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, fault.KindPublic, fault.KindOf(err))
}

func TestWithRetry_RecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), config.StartupConfig{Attempts: 5, Backoff: time.Millisecond},
		slog.New(slog.DiscardHandler), "test", func(context.Context) error {
			calls++
			if calls < 3 {
				return fault.StoreUnavailable("test", assert.AnError)
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
