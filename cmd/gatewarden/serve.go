// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/clock"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/events"
	"github.com/gatewarden/gatewarden/internal/logging"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/premium"
	"github.com/gatewarden/gatewarden/internal/premium/rediscache"
	"github.com/gatewarden/gatewarden/internal/user"
	"github.com/gatewarden/gatewarden/internal/user/memory"
	"github.com/gatewarden/gatewarden/internal/user/postgres"
	"github.com/gatewarden/gatewarden/internal/web"
)

// NewServeCmd creates the serve subcommand with all flags configured.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the decision API server",
		Long: `Start the HTTP server exposing pre-login, post-login and routing
decisions to proxy plugins.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	// Flag names mirror config keys so they overlay the config file directly.
	cmd.Flags().String("listen.http", ":8080", "decision API listen address")
	cmd.Flags().String("listen.metrics", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database_url", "", "PostgreSQL connection string (empty = in-memory store)")
	cmd.Flags().String("redis_url", "", "Redis URL for the premium lookup cache (empty = disabled)")
	cmd.Flags().String("premium_api_url", "", "premium profile API base URL")
	cmd.Flags().Duration("session_timeout", time.Hour, "password-free session resumption window")
	cmd.Flags().Bool("auto_register", true, "link first-contact premium names automatically")
	cmd.Flags().String("log.format", "json", "log format (json or text)")
	cmd.Flags().String("log.level", "info", "log level (debug, info, warn or error)")

	return cmd
}

// loggingTracker is the default interactive-credential collaborator: it only
// records that a session was handed off. Deployments with an in-process
// credential flow replace it.
type loggingTracker struct {
	logger *slog.Logger
}

func (t *loggingTracker) StartTracking(_ context.Context, u *user.User) {
	t.logger.Info("session handed to interactive authentication",
		"user_id", u.ID.String(),
		"username", u.CurrentUsername,
		"registered", u.Registered(),
	)
}

// runServe starts the decision API process.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.SetDefault(logging.Options{
		Service: "gatewarden",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.SlogLevel(),
	})

	slog.Info("starting gatewarden",
		"http_addr", cfg.Listen.HTTP,
		"metrics_addr", cfg.Listen.Metrics,
		"session_timeout", cfg.SessionTimeout,
		"auto_register", cfg.AutoRegister,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// User store: PostgreSQL when configured, in-memory otherwise.
	var users user.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to create database pool: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach database: %w", err)
		}
		users = postgres.NewRepository(pool)
		slog.Info("using postgres user store")
	} else {
		users = memory.NewRepository()
		slog.Warn("using in-memory user store, records do not survive restarts")
	}

	// Premium lookup, optionally fronted by the Redis cache.
	var lookup premium.Lookup = premium.NewClient(cfg.PremiumAPIURL)
	if cfg.RedisURL != "" {
		cache, err := rediscache.New(rediscache.Config{URL: cfg.RedisURL}, lookup, logger)
		if err != nil {
			return fmt.Errorf("failed to connect premium cache: %w", err)
		}
		defer func() {
			if closeErr := cache.Close(); closeErr != nil {
				slog.Warn("error closing premium cache", "error", closeErr)
			}
		}()
		lookup = cache
		slog.Info("premium lookup cache enabled")
	}

	clk := clock.New()
	broadcaster := events.NewBroadcaster()
	reconciler := auth.NewReconciler(users, auth.NewOfflineIDGenerator(), cfg.AutoRegister, clk)

	preLogin := auth.NewPreLoginEngine(users, lookup, reconciler, broadcaster, clk, logger)
	tracker := &loggingTracker{logger: logger}
	postLogin := auth.NewAuthenticator(users, tracker, broadcaster, cfg.SessionTimeout, logger)
	selector := auth.NewSelector(cfg.SessionTimeout)

	// Surface security-relevant decisions in the log stream.
	auditCh := broadcaster.Subscribe(events.TypePremiumLinkRevoked)
	go func() {
		for ev := range auditCh {
			slog.Warn("premium link revoked",
				"event_id", ev.ID.String(),
				"user_id", ev.UserID.String(),
				"username", ev.Username,
			)
		}
	}()
	defer broadcaster.Unsubscribe(events.TypePremiumLinkRevoked, auditCh)

	// Observability server, if configured.
	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Listen.Metrics != "" {
		obsServer = observability.NewServer(cfg.Listen.Metrics, func() bool { return true })
		metrics = obsServer.Metrics()
		if _, err := obsServer.Start(); err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	handler := web.NewHandler(users, preLogin, postLogin, selector, clk, metrics, logger)
	webServer := web.NewServer(cfg.Listen.HTTP, web.NewRouter(handler))

	webErrCh, err := webServer.Start()
	if err != nil {
		if obsServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = obsServer.Stop(shutdownCtx)
		}
		return fmt.Errorf("failed to start web server: %w", err)
	}

	slog.Info("gatewarden ready", "addr", webServer.Addr())

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-webErrCh:
		if err != nil {
			slog.Error("web server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}
