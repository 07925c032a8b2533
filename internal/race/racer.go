package race

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/typerace/internal/passage"
	"github.com/playperu/typerace/internal/typerace"
	"github.com/playperu/typerace/internal/typing"
)

type RacerOptions struct {
	Logger *slog.Logger
	Now    func() time.Time
	// Submit, when set, records the final result once after the terminal
	// write, e.g. as a leaderboard run.
	Submit func(ctx context.Context, res typing.Result) error
}

// Racer is the local participant: it owns the typing session for the
// room's text, pushes its own progress and performs its single terminal
// write. It never writes another player's record.
type Racer struct {
	backend  Backend
	roomID   string
	uid      string
	session  *typing.Session
	length   int
	duration time.Duration
	logger   *slog.Logger
	submit   func(ctx context.Context, res typing.Result) error
	now      func() time.Time

	wg       sync.WaitGroup
	mu       sync.Mutex
	status   typerace.RoomStatus
	startAt  *time.Time
	finished bool
	result   typing.Result
	done     chan struct{}

	// The terminal write is retried until it succeeds; writing keeps at
	// most one attempt in flight.
	writing bool
	written bool
}

// NewRacer prepares a session for room. Passage rooms race over the fixed
// passage and finish at its end; timed rooms draw lines from the room seed
// and finish when the clock runs out.
func NewRacer(backend Backend, room typerace.Room, uid string, opts RacerOptions) *Racer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var clock []typing.TrackerOption
	if opts.Now != nil {
		clock = append(clock, typing.WithClock(opts.Now))
	} else {
		opts.Now = time.Now
	}

	r := &Racer{
		backend: backend,
		roomID:  room.ID,
		uid:     uid,
		logger:  opts.Logger.With("room_id", room.ID, "uid", uid),
		submit:  opts.Submit,
		now:     opts.Now,
		done:    make(chan struct{}),
	}

	if room.Passage != "" {
		src := passage.NewFixed(room.Passage, passage.WordsPerLine)
		r.length = src.Len()
		r.session = typing.NewSession(src, 0, append(clock, typing.WithoutAutoStop())...)
	} else {
		r.duration = time.Duration(room.ModeSeconds) * time.Second
		r.session = typing.NewSession(passage.NewSeeded(room.Seed), r.duration, clock...)
	}
	r.session.SetDisabled(true)
	return r
}

// Observe reacts to a coordinator view: the agreed start time replaces the
// local one, and keystrokes are accepted once the race is in progress and
// the start time has been reached.
func (r *Racer) Observe(v View) {
	r.mu.Lock()
	if v.StartAt != nil && r.startAt == nil {
		at := *v.StartAt
		r.startAt = &at
		r.session.SetStartTime(at)
	}
	r.status = v.Status
	r.mu.Unlock()
	r.gate()
}

// gate enables the session only inside the race window. An instant
// countdown reports in_progress while StartAt is still ahead.
func (r *Racer) gate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	open := r.status == typerace.StatusInProgress && (r.startAt == nil || !r.now().Before(*r.startAt))
	r.session.SetDisabled(!open)
}

// Key applies one keystroke. Reaching the end of the passage triggers the
// terminal write.
func (r *Racer) Key(ctx context.Context, ev typing.KeyEvent) typing.Effect {
	r.gate()
	eff := r.session.Key(ev)
	if st := r.session.Stats(); st.Done {
		r.finish(ctx, st)
	}
	return eff
}

// Tick advances the clock and pushes progress on every new sample. A
// terminal write that failed earlier is retried here.
func (r *Racer) Tick(ctx context.Context) typing.Stats {
	r.gate()
	st, sampled := r.session.Tick()
	if sampled {
		r.push(ctx, st)
	}
	if st.Ended {
		r.finish(ctx, st)
	}
	return st
}

// Stats returns the live session view.
func (r *Racer) Stats() typing.Stats { return r.session.Stats() }

// Progress is the completed fraction of the passage, or of the clock in
// timed rooms.
func (r *Racer) Progress(st typing.Stats) float64 {
	switch {
	case r.length > 0:
		return typerace.ClampProgress(float64(st.Position) / float64(r.length))
	case r.duration > 0:
		return typerace.ClampProgress(st.Elapsed.Seconds() / r.duration.Seconds())
	}
	return 0
}

func (r *Racer) push(ctx context.Context, st typing.Stats) {
	progress := r.Progress(st)
	wpm, acc, n := st.WPM, st.Accuracy, st.InputLength
	u := typerace.ProgressUpdate{Progress: &progress, WPM: &wpm, Accuracy: &acc, InputLength: &n}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.backend.UpdatePlayerProgress(ctx, r.roomID, r.uid, u); err != nil {
			r.logger.Debug("progress push dropped", "error", err)
		}
	}()
}

func (r *Racer) finish(ctx context.Context, st typing.Stats) {
	r.mu.Lock()
	if !r.finished {
		r.finished = true
		r.session.Stop()
		res, ok := r.session.Result()
		if !ok {
			res = typing.Result{WPM: st.WPM, Accuracy: st.Accuracy, Errors: st.Errors}
		}
		r.result = res
		close(r.done)
	}
	if r.writing || r.written {
		r.mu.Unlock()
		return
	}
	r.writing = true
	res := r.result
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.backend.FinishPlayer(ctx, r.roomID, r.uid, res.WPM, res.Accuracy)

		r.mu.Lock()
		r.writing = false
		r.written = err == nil
		r.mu.Unlock()
		if err != nil {
			r.logger.Warn("finish write failed, retrying on next tick", "error", err)
			return
		}

		if r.submit != nil {
			if err := r.submit(ctx, res); err != nil {
				r.logger.Warn("run submission failed", "error", err)
			}
		}
	}()
}

// Done is closed once the local participant has finished.
func (r *Racer) Done() <-chan struct{} { return r.done }

// Result is the final score, available after Done is closed.
func (r *Racer) Result() (typing.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.finished
}

// Run drives the racer from coordinator views and a ticker until the room
// is finished or ctx is cancelled. Pending writes are flushed before it
// returns.
func (r *Racer) Run(ctx context.Context, updates <-chan View) error {
	ticker := time.NewTicker(typing.TickInterval)
	defer ticker.Stop()
	defer r.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v := <-updates:
			r.Observe(v)
			if v.Status == typerace.StatusFinished {
				return nil
			}
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Wait blocks until every pending write has completed.
func (r *Racer) Wait() { r.wg.Wait() }
