package typing

import (
	"math"
	"time"

	"github.com/playperu/typerace/internal/typerace"
)

// minElapsedMinutes keeps WPM finite right after the start.
const minElapsedMinutes = 0.001

// Tracker owns the timing of one attempt: the start and end instants, the
// live WPM and the one-sample-per-second series.
type Tracker struct {
	duration time.Duration
	autoStop bool
	now      func() time.Time

	start   time.Time
	started bool
	end     time.Time
	ended   bool

	live       int
	lastSecond int
	samples    []typerace.Sample
	reported   bool
}

type TrackerOption func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithoutAutoStop keeps the tracker running past its duration; completion is
// then signalled with Stop.
func WithoutAutoStop() TrackerOption {
	return func(t *Tracker) { t.autoStop = false }
}

// NewTracker returns a tracker for a run of the given duration. A zero
// duration never auto-stops.
func NewTracker(duration time.Duration, opts ...TrackerOption) *Tracker {
	t := &Tracker{duration: duration, autoStop: duration > 0, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start records the start time on the first call.
func (t *Tracker) Start() {
	if t.started || t.ended {
		return
	}
	t.start = t.now()
	t.started = true
}

// SetStartTime pins the start to an externally agreed instant, overriding
// any keystroke-driven start.
func (t *Tracker) SetStartTime(at time.Time) {
	if t.ended {
		return
	}
	t.start = at
	t.started = true
}

func (t *Tracker) Started() bool        { return t.started }
func (t *Tracker) Ended() bool          { return t.ended }
func (t *Tracker) StartTime() time.Time { return t.start }
func (t *Tracker) EndTime() time.Time   { return t.end }
func (t *Tracker) LiveWPM() int         { return t.live }

// Samples returns a copy of the WPM series.
func (t *Tracker) Samples() []typerace.Sample {
	return append([]typerace.Sample(nil), t.samples...)
}

// Elapsed is the running time, frozen once the tracker has ended.
func (t *Tracker) Elapsed() time.Duration {
	if !t.started {
		return 0
	}
	end := t.now()
	if t.ended {
		end = t.end
	}
	return end.Sub(t.start)
}

// Remaining is the time left before auto-stop, or zero when unbounded.
func (t *Tracker) Remaining() time.Duration {
	if t.duration <= 0 {
		return 0
	}
	return max(t.duration-t.Elapsed(), 0)
}

// Tick recomputes the live WPM from wordsTyped. It returns a sample when a
// new whole second has been crossed.
func (t *Tracker) Tick(wordsTyped int) (typerace.Sample, bool) {
	if !t.started || t.ended {
		return typerace.Sample{}, false
	}

	elapsed := t.now().Sub(t.start)
	if elapsed < 0 {
		return typerace.Sample{}, false
	}

	t.live = WPM(wordsTyped, elapsed)

	second := int(elapsed / time.Second)
	if t.duration > 0 {
		second = min(second, int(t.duration/time.Second))
	}

	var (
		sample typerace.Sample
		ok     bool
	)
	if second > t.lastSecond {
		t.lastSecond = second
		sample = typerace.Sample{Time: second, WPM: t.live}
		t.samples = append(t.samples, sample)
		ok = true
	}

	if t.autoStop && elapsed >= t.duration {
		t.stop()
	}
	return sample, ok
}

// Stop ends a started run. The end time is only ever set once.
func (t *Tracker) Stop() {
	if t.started {
		t.stop()
	}
}

func (t *Tracker) stop() {
	if t.ended {
		return
	}
	t.end = t.now()
	t.ended = true
}

// Result is the final score of an attempt.
type Result struct {
	WPM       int               `json:"wpm"`
	Accuracy  int               `json:"accuracy"`
	Errors    int               `json:"errors"`
	Duration  time.Duration     `json:"duration"`
	WPMSeries []typerace.Sample `json:"wpmSeries"`
}

// Report returns the final result exactly once, after the tracker has
// ended. Later calls return false.
func (t *Tracker) Report(wordsTyped, total, errors int) (Result, bool) {
	if !t.ended || t.reported {
		return Result{}, false
	}
	t.reported = true
	elapsed := t.end.Sub(t.start)
	return Result{
		WPM:       WPM(wordsTyped, elapsed),
		Accuracy:  Accuracy(total, errors),
		Errors:    errors,
		Duration:  elapsed,
		WPMSeries: t.Samples(),
	}, true
}

// WPM is words over elapsed minutes, rounded.
func WPM(words int, elapsed time.Duration) int {
	minutes := max(elapsed.Minutes(), minElapsedMinutes)
	return int(math.Round(float64(words) / minutes))
}

// Accuracy is the rounded share of characters typed without error. It is
// 100 when nothing has been typed.
func Accuracy(total, errors int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(total-errors) / float64(total) * 100))
}
