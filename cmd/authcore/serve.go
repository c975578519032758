// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/apierror"
	"github.com/authcore/authcore/internal/config"
	"github.com/authcore/authcore/internal/gate"
	"github.com/authcore/authcore/internal/notify"
	"github.com/authcore/authcore/internal/observability"
	"github.com/authcore/authcore/internal/token"
	"github.com/authcore/authcore/pkg/authcore"
)

// ObservabilityServer is the part of *observability.Server used by serve.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() *prometheus.Registry
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// ServiceOpener opens the authcore service.
	// Default: authcore.Open
	ServiceOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*authcore.Service, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// Signals lists the signals that trigger shutdown.
	// Default: SIGINT, SIGTERM
	Signals []os.Signal
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open the stores and serve metrics and health probes",
		Long: `Open the configured user store, token store and notifier, then
serve /metrics and /healthz until interrupted. API layers embedding
pkg/authcore use the same configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
}

func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.ServiceOpener == nil {
		deps.ServiceOpener = authcore.Open
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if len(deps.Signals) == 0 {
		deps.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, version, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("error flushing traces", "error", err)
		}
	}()

	svc, err := deps.ServiceOpener(ctx, cfg, logger)
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "open service").Wrap(err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("error closing service", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, svc.Ready, logger)
		registerMetrics(obsServer.Registry())
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, deps.Signals...)
	defer signal.Stop(sigChan)

	cmd.Println("authcore ready")
	logger.Info("authcore ready",
		"users", storeName(cfg),
		"tokens", cfg.Tokens.Backend,
		"notifier", cfg.Notifier.Kind,
		"metrics_addr", cfg.Metrics.Addr,
	)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// registerMetrics adds the component collectors to reg.
func registerMetrics(reg prometheus.Registerer) {
	token.RegisterMetrics(reg)
	gate.RegisterMetrics(reg)
	apierror.RegisterMetrics(reg)
	notify.RegisterMetrics(reg)
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

func storeName(cfg *config.Config) string {
	if cfg.UsesPostgres() {
		return "postgres"
	}
	return "memory"
}
