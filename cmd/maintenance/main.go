// Command maintenance deletes whole collections from the document store.
//
// Usage:
//
//	maintenance [collection ...]
//
// With no arguments, or with "all", every collection is deleted. Rooms are
// deleted together with their players.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/playperu/typerace/internal/config"
	"github.com/playperu/typerace/internal/database"
	"github.com/playperu/typerace/internal/docstore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.LoadMaintenance()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	names, err := collections(args)
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	store := docstore.New(db, docstore.NewBroker(), logger)
	for _, name := range names {
		n, err := store.DeleteCollection(ctx, name, cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("deleting %s: %w", name, err)
		}
		logger.Info("deleted collection", "collection", name, "deleted", n)
	}
	return nil
}

// collections resolves the command arguments to collection names.
func collections(args []string) ([]string, error) {
	if len(args) == 0 || slices.Contains(args, "all") {
		return docstore.Collections, nil
	}
	for _, a := range args {
		if !slices.Contains(docstore.Collections, a) {
			return nil, fmt.Errorf("%w: %q (want one of %v)", docstore.ErrUnknownCollection, a, docstore.Collections)
		}
	}
	return args, nil
}
