// Command racebot drives simulated typists over the public HTTP API. In race
// mode the bots fill a room and race to the finish; in solo mode each bot
// takes timed tests and submits its runs to the leaderboard.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/typerace/internal/config"
	"github.com/playperu/typerace/internal/identity"
	"github.com/playperu/typerace/internal/race"
	"github.com/playperu/typerace/internal/raceclient"
	"github.com/playperu/typerace/internal/typerace"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Bots < 1 {
		return fmt.Errorf("BOTS must be at least 1, got %d", cfg.Bots)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	verifier := identity.NewVerifier(cfg.JWTSecret)
	bots := make([]*bot, cfg.Bots)
	for i := range bots {
		id := typerace.Identity{
			UID:         fmt.Sprintf("racebot-%d", i+1),
			DisplayName: fmt.Sprintf("bot_%d", i+1),
		}
		token, err := verifier.Issue(id, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("issuing token for %s: %w", id.UID, err)
		}
		bots[i] = &bot{
			uid:    id.UID,
			client: raceclient.New(cfg.ServerURL, token, raceclient.Options{Logger: logger}),
			wpm:    cfg.WPM,
			logger: logger.With("bot", id.DisplayName),
		}
	}

	switch cfg.Mode {
	case "race":
		return runRace(ctx, logger, cfg, bots)
	case "solo":
		return runSolo(ctx, logger, cfg, bots)
	}
	return fmt.Errorf("BOT_MODE must be race or solo, got %q", cfg.Mode)
}

// runRace puts every bot into one room, races them and logs the summary.
func runRace(ctx context.Context, logger *slog.Logger, cfg *config.Bot, bots []*bot) error {
	roomID := cfg.RoomID
	joining := bots
	if roomID == "" {
		snap, err := bots[0].client.CreateRoom(ctx, raceclient.CreateRoomRequest{PassageLength: cfg.Passage})
		if err != nil {
			return fmt.Errorf("creating room: %w", err)
		}
		roomID = snap.Room.ID
		joining = bots[1:]
		logger.Info("created room", "room_id", roomID, "host", bots[0].uid)
	}
	for _, b := range joining {
		if _, err := b.client.JoinRoom(ctx, roomID, ""); err != nil {
			return fmt.Errorf("%s joining room %s: %w", b.uid, roomID, err)
		}
	}
	logger.Info("bots ready", "room_id", roomID, "bots", len(bots))

	start := make(chan struct{})
	rosters := make([][]typerace.Player, len(bots))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bots {
		g.Go(func() error {
			players, err := b.race(gctx, roomID, cfg.Countdown, start)
			if err != nil {
				return fmt.Errorf("%s: %w", b.uid, err)
			}
			rosters[i] = players
			return nil
		})
	}
	close(start)

	if err := g.Wait(); err != nil {
		return err
	}

	roster := rosters[0]
	for place, p := range race.Standings(roster, race.TopK) {
		logger.Info("standing", "place", place+1, "username", p.Username, "progress", p.Progress, "wpm", p.WPM)
	}
	if w, ok := race.Winner(roster); ok {
		logger.Info("winner", "room_id", roomID, "username", w.Username, "wpm", w.WPM, "accuracy", w.Accuracy)
	}
	return nil
}

// runSolo has every bot take timed tests concurrently and submit the runs.
func runSolo(ctx context.Context, logger *slog.Logger, cfg *config.Bot, bots []*bot) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range bots {
		g.Go(func() error {
			attempts, err := b.solo(gctx, cfg.SoloSeconds, max(cfg.Attempts, 1))
			if err != nil {
				return fmt.Errorf("%s: %w", b.uid, err)
			}
			for _, a := range attempts {
				b.logger.Info("history", "at", a.At, "mode", a.ModeSeconds, "wpm", a.WPM, "accuracy", a.Accuracy)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	board, err := bots[0].client.Leaderboard(ctx, cfg.SoloSeconds, race.TopK)
	if err != nil {
		return fmt.Errorf("loading leaderboard: %w", err)
	}
	for place, run := range board {
		logger.Info("leaderboard", "place", place+1, "username", run.Username, "wpm", run.WPM)
	}
	return nil
}
