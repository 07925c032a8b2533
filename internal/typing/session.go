package typing

import (
	"sync"
	"time"
)

// TickInterval matches a display refresh of roughly 60 Hz.
const TickInterval = 16 * time.Millisecond

// Session ties an Engine to a Tracker for one attempt. Unlike the two parts
// it wraps, a Session is safe for concurrent use: keystrokes and ticks may
// arrive from different goroutines.
type Session struct {
	mu       sync.Mutex
	engine   *Engine
	tracker  *Tracker
	disabled bool
}

func NewSession(src LineSource, duration time.Duration, opts ...TrackerOption) *Session {
	return &Session{
		engine:  NewEngine(src),
		tracker: NewTracker(duration, opts...),
	}
}

// SetDisabled blocks or unblocks keystrokes.
func (s *Session) SetDisabled(disabled bool) {
	s.mu.Lock()
	s.disabled = disabled
	s.mu.Unlock()
}

// SetStartTime forwards an externally agreed start to the tracker.
func (s *Session) SetStartTime(at time.Time) {
	s.mu.Lock()
	s.tracker.SetStartTime(at)
	s.mu.Unlock()
}

// Key applies ev. The first accepted printable character starts the clock.
// Input is ignored while disabled or after the run has ended.
func (s *Session) Key(ev KeyEvent) Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled || s.tracker.Ended() {
		return Effect{}
	}
	eff := s.engine.Handle(ev)
	if eff.Char {
		s.tracker.Start()
	}
	if s.engine.Done() {
		s.tracker.Stop()
	}
	return eff
}

// Tick advances the tracker; see Tracker.Tick.
func (s *Session) Tick() (Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tracker.Tick(s.engine.WordsTyped())
	return s.stats(), ok
}

// Stop ends the run early, e.g. when the passage is exhausted.
func (s *Session) Stop() {
	s.mu.Lock()
	s.tracker.Stop()
	s.mu.Unlock()
}

// Result returns the final score once; see Tracker.Report.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Report(s.engine.WordsTyped(), s.engine.TotalCharacters(), s.engine.Errors())
}

// Stats is a point-in-time view of a session.
type Stats struct {
	Started     bool
	Ended       bool
	Done        bool
	WPM         int
	Accuracy    int
	Errors      int
	Total       int
	Position    int
	InputLength int
	Elapsed     time.Duration
	Remaining   time.Duration
	Line        string
	Input       string
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats()
}

func (s *Session) stats() Stats {
	return Stats{
		Started:     s.tracker.Started(),
		Ended:       s.tracker.Ended(),
		Done:        s.engine.Done(),
		WPM:         s.tracker.LiveWPM(),
		Accuracy:    Accuracy(s.engine.TotalCharacters(), s.engine.Errors()),
		Errors:      s.engine.Errors(),
		Total:       s.engine.TotalCharacters(),
		Position:    s.engine.Position(),
		InputLength: s.engine.Position(),
		Elapsed:     s.tracker.Elapsed(),
		Remaining:   s.tracker.Remaining(),
		Line:        s.engine.Line(),
		Input:       s.engine.Input(),
	}
}
