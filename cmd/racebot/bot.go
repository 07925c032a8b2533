package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/typerace/internal/leaderboard"
	"github.com/playperu/typerace/internal/passage"
	"github.com/playperu/typerace/internal/race"
	"github.com/playperu/typerace/internal/raceclient"
	"github.com/playperu/typerace/internal/solo"
	"github.com/playperu/typerace/internal/typerace"
	"github.com/playperu/typerace/internal/typing"
)

// bot is one simulated participant driving a Racer over the HTTP API.
type bot struct {
	uid    string
	client *raceclient.Client
	wpm    int
	logger *slog.Logger
}

// race follows the room until it finishes, typing at the bot's pace once
// the race is in progress. The host starts the race after the others have
// joined. It returns the final roster.
func (b *bot) race(ctx context.Context, roomID string, countdown time.Duration, start <-chan struct{}) ([]typerace.Player, error) {
	snap, err := b.client.Room(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("loading room: %w", err)
	}

	coord, err := race.Open(ctx, b.client, roomID, b.uid, race.Options{Logger: b.logger})
	if err != nil {
		return nil, fmt.Errorf("observing room: %w", err)
	}
	defer coord.Close()

	opts := race.RacerOptions{Logger: b.logger}
	if snap.Room.Passage == "" {
		mode := snap.Room.ModeSeconds
		opts.Submit = func(ctx context.Context, res typing.Result) error {
			_, _, err := b.client.SubmitRun(ctx, leaderboard.RunInput{
				ModeSeconds: mode,
				WPM:         res.WPM,
				Accuracy:    res.Accuracy,
				Errors:      res.Errors,
				WPMSeries:   res.WPMSeries,
			})
			return err
		}
	}
	racer := race.NewRacer(b.client, snap.Room, b.uid, opts)

	if coord.State().IsHost() {
		go func() {
			select {
			case <-ctx.Done():
				return
			case <-start:
			}
			if err := coord.StartRace(countdown); err != nil {
				b.logger.Warn("starting race", "error", err)
			}
		}()
	}

	go b.typeAway(ctx, racer.Stats, func(ev typing.KeyEvent) { racer.Key(ctx, ev) }, racer.Done())
	if err := racer.Run(ctx, coord.Updates()); err != nil {
		return nil, err
	}

	if res, ok := racer.Result(); ok {
		b.logger.Info("finished", "wpm", res.WPM, "accuracy", res.Accuracy, "errors", res.Errors)
	}
	return coord.State().Players, nil
}

// solo runs attempts timed tests back to back over one generated text,
// submitting each run, and returns the local history.
func (b *bot) solo(ctx context.Context, modeSeconds, attempts int) ([]typing.Attempt, error) {
	history := &typing.History{}
	source := passage.NewGenerator()
	for range attempts {
		test, err := solo.New(modeSeconds, solo.Options{
			Source:    source,
			History:   history,
			Submitter: b.client,
			Logger:    b.logger,
		})
		if err != nil {
			return nil, err
		}
		go b.typeAway(ctx, test.Stats, func(ev typing.KeyEvent) { test.Key(ev) }, test.Done())
		res, err := test.Run(ctx)
		if err != nil {
			return nil, err
		}
		b.logger.Info("solo test finished", "mode", modeSeconds, "wpm", res.WPM, "accuracy", res.Accuracy)
	}
	return history.Attempts(), nil
}

// typeAway presses the next expected key at a steady rate until done is
// closed. Keys pressed before typing is allowed are ignored and retried on
// the next beat.
func (b *bot) typeAway(ctx context.Context, stats func() typing.Stats, press func(typing.KeyEvent), done <-chan struct{}) {
	ticker := time.NewTicker(keyInterval(b.wpm))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if key, ok := nextKey(stats()); ok {
				press(typing.KeyEvent{Key: key})
			}
		}
	}
}

// keyInterval converts a words-per-minute pace into a delay between key
// presses, counting five characters per word.
func keyInterval(wpm int) time.Duration {
	if wpm <= 0 {
		wpm = 1
	}
	return time.Minute / time.Duration(wpm*5)
}

// nextKey is the key that advances st by one correct character: the next
// character of the line, or a space once the line is fully typed.
func nextKey(st typing.Stats) (string, bool) {
	line, input := []rune(st.Line), []rune(st.Input)
	switch {
	case st.Done || len(line) == 0:
		return "", false
	case len(input) < len(line):
		return string(line[len(input)]), true
	}
	return " ", true
}
