// Package solo runs the single-player timed typing test: an endless
// generated text, a clock that starts on the first keystroke, a short local
// history and an optional leaderboard submission.
package solo

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/playperu/typerace/internal/leaderboard"
	"github.com/playperu/typerace/internal/passage"
	"github.com/playperu/typerace/internal/typerace"
	"github.com/playperu/typerace/internal/typing"
)

// Modes are the supported test durations in seconds.
var Modes = []int{15, 30, 60}

// Submitter stores a finished run. *raceclient.Client satisfies it.
type Submitter interface {
	SubmitRun(ctx context.Context, in leaderboard.RunInput) (typerace.Run, bool, error)
}

type Options struct {
	// Source supplies the lines. Defaults to an unseeded generator; share
	// one across attempts to keep the text flowing between tests.
	Source    typing.LineSource
	History   *typing.History
	Submitter Submitter
	Logger    *slog.Logger
	Now       func() time.Time
}

// Test is one timed attempt.
type Test struct {
	mode    int
	session *typing.Session
	history *typing.History
	submit  Submitter
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	ended  bool
	result typing.Result
	done   chan struct{}
}

func New(modeSeconds int, opts Options) (*Test, error) {
	if !slices.Contains(Modes, modeSeconds) {
		return nil, fmt.Errorf("unsupported mode %ds, want one of %v", modeSeconds, Modes)
	}
	if opts.Source == nil {
		opts.Source = passage.NewGenerator()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var clock []typing.TrackerOption
	if opts.Now != nil {
		clock = append(clock, typing.WithClock(opts.Now))
	} else {
		opts.Now = time.Now
	}

	return &Test{
		mode:    modeSeconds,
		session: typing.NewSession(opts.Source, time.Duration(modeSeconds)*time.Second, clock...),
		history: opts.History,
		submit:  opts.Submitter,
		logger:  opts.Logger.With("mode", modeSeconds),
		now:     opts.Now,
		done:    make(chan struct{}),
	}, nil
}

// Key applies one keystroke. The first printable character starts the clock.
func (t *Test) Key(ev typing.KeyEvent) typing.Effect { return t.session.Key(ev) }

func (t *Test) Stats() typing.Stats { return t.session.Stats() }

// Done is closed once the clock has run out.
func (t *Test) Done() <-chan struct{} { return t.done }

// Result is the final score, available after Done is closed.
func (t *Test) Result() (typing.Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.ended
}

// Tick advances the clock. When it runs out the attempt is recorded in the
// history and submitted, exactly once.
func (t *Test) Tick(ctx context.Context) typing.Stats {
	st, _ := t.session.Tick()
	if st.Ended {
		t.complete(ctx)
	}
	return st
}

func (t *Test) complete(ctx context.Context) {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	res, _ := t.session.Result()
	t.ended = true
	t.result = res
	close(t.done)
	t.mu.Unlock()

	if t.history != nil {
		t.history.Add(typing.Attempt{
			At:          t.now(),
			ModeSeconds: t.mode,
			WPM:         res.WPM,
			Accuracy:    res.Accuracy,
			Errors:      res.Errors,
		})
	}
	if t.submit == nil {
		return
	}
	_, stored, err := t.submit.SubmitRun(ctx, leaderboard.RunInput{
		ModeSeconds: t.mode,
		WPM:         res.WPM,
		Accuracy:    res.Accuracy,
		Errors:      res.Errors,
		WPMSeries:   res.WPMSeries,
	})
	switch {
	case err != nil:
		t.logger.Warn("run submission failed", "error", err)
	case !stored:
		t.logger.Debug("anonymous run not stored")
	}
}

// Run ticks the test until the clock runs out or ctx is cancelled.
func (t *Test) Run(ctx context.Context) (typing.Result, error) {
	ticker := time.NewTicker(typing.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return typing.Result{}, ctx.Err()
		case <-ticker.C:
			t.Tick(ctx)
		case <-t.done:
			res, _ := t.Result()
			return res, nil
		}
	}
}
