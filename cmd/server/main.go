package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/typerace/internal/config"
	"github.com/playperu/typerace/internal/database"
	"github.com/playperu/typerace/internal/docstore"
	"github.com/playperu/typerace/internal/handler/health"
	"github.com/playperu/typerace/internal/identity"
	"github.com/playperu/typerace/internal/leaderboard"
	"github.com/playperu/typerace/internal/migrations"
	"github.com/playperu/typerace/internal/profile"
	"github.com/playperu/typerace/internal/rooms"
	"github.com/playperu/typerace/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	version, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	g, gctx := errgroup.WithContext(ctx)
	checks := map[string]health.Checker{"sqlite": health.DB(db)}

	// --- Change notifications ---
	var notifier docstore.Notifier = docstore.NewBroker()
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		rb := docstore.NewRedisBroker(rdb, cfg.RedisPrefix, logger)
		g.Go(func() error { return rb.Run(gctx) })
		notifier = rb
		checks["redis"] = health.Redis(rdb)
	}

	// --- Services ---
	store := docstore.New(db, notifier, logger)
	profiles := profile.New(store, logger)

	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Rooms:             rooms.New(store, logger, rooms.Options{MaxPlayers: cfg.MaxPlayers}),
		Profiles:          profiles,
		Leaderboard:       leaderboard.New(store, profiles, logger),
		Maintenance:       store,
		Verifier:          identity.NewVerifier(cfg.JWTSecret),
		Health:            health.NewHandler(logger, checks).Routes(),
		AdminPasswordHash: cfg.AdminPasswordHash,
		Countdown:         cfg.Countdown(),
	})

	// --- Run ---
	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
