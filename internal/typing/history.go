package typing

import "time"

const historySize = 5

// Attempt is one finished solo test kept for the local history panel.
type Attempt struct {
	At          time.Time
	ModeSeconds int
	WPM         int
	Accuracy    int
	Errors      int
}

// History keeps the most recent attempts, newest first.
type History struct {
	attempts []Attempt
}

func (h *History) Add(a Attempt) {
	h.attempts = append([]Attempt{a}, h.attempts...)
	if len(h.attempts) > historySize {
		h.attempts = h.attempts[:historySize]
	}
}

func (h *History) Attempts() []Attempt {
	return append([]Attempt(nil), h.attempts...)
}
