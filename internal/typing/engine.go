// Package typing turns raw key events into validated input against a target
// line and derives live WPM and accuracy from the resulting counters.
package typing

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	KeyBackspace = "Backspace"
	KeySpace     = " "
)

// KeyEvent is one raw key press. Key is either a single printable character,
// KeyBackspace or KeySpace; anything else is ignored.
type KeyEvent struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl,omitempty"`
	Alt  bool   `json:"alt,omitempty"`
	Meta bool   `json:"meta,omitempty"`
}

// LineSource hands out target lines. An empty line means the text is
// exhausted.
type LineSource interface {
	NextLine() string
}

// Effect describes what a key event did to the engine.
type Effect struct {
	Accepted bool // the input buffer changed
	Char     bool // an accepted non-space printable character
	LineDone bool // the current line was completed and the next one loaded
}

// Engine validates keystrokes against the current line. It is not safe for
// concurrent use.
type Engine struct {
	src      LineSource
	line     []rune
	upcoming []rune
	input    []rune

	errors         int
	total          int
	completedWords int
	committed      int
}

func NewEngine(src LineSource) *Engine {
	e := &Engine{}
	e.Reset(src)
	return e
}

// Reset clears every counter and loads fresh lines from src.
func (e *Engine) Reset(src LineSource) {
	*e = Engine{src: src}
	e.line = []rune(src.NextLine())
	if len(e.line) > 0 {
		e.upcoming = []rune(src.NextLine())
	}
}

// Handle applies one key event.
func (e *Engine) Handle(ev KeyEvent) Effect {
	if ev.Ctrl || ev.Alt || ev.Meta || e.Done() {
		return Effect{}
	}

	switch ev.Key {
	case KeyBackspace:
		return e.backspace()
	case KeySpace:
		return e.space()
	}

	r, size := utf8.DecodeRuneInString(ev.Key)
	if size == 0 || size != len(ev.Key) || r == utf8.RuneError || !unicode.IsPrint(r) {
		return Effect{}
	}
	return e.char(r)
}

func (e *Engine) backspace() Effect {
	n := len(e.input)
	if n == 0 {
		return Effect{}
	}
	last := e.input[n-1]
	e.input = e.input[:n-1]
	if last != ' ' {
		e.total--
	}
	return Effect{Accepted: true}
}

func (e *Engine) space() Effect {
	expected, ok := e.expected()
	atLastWord := e.atLastWord()
	wordDone := e.matchesPrefix()

	if ok && expected != ' ' && !atLastWord && !wordDone {
		e.errors++
	}
	if !(expected == ' ' || atLastWord || wordDone) {
		return Effect{}
	}

	e.input = append(e.input, ' ')
	e.total++
	return Effect{Accepted: true, LineDone: e.completeLine()}
}

func (e *Engine) char(r rune) Effect {
	if len(e.input) >= len(e.line) {
		return Effect{}
	}
	expected, _ := e.expected()
	e.input = append(e.input, r)
	e.total++
	if expected == ' ' || r != expected {
		e.errors++
	}
	return Effect{Accepted: true, Char: true}
}

func (e *Engine) expected() (rune, bool) {
	if len(e.input) < len(e.line) {
		return e.line[len(e.input)], true
	}
	return 0, false
}

// atLastWord holds once the input has reached the end of the line or only
// whitespace remains after it.
func (e *Engine) atLastWord() bool {
	if len(e.input) >= len(e.line) {
		return true
	}
	return strings.TrimSpace(string(e.line[len(e.input):])) == ""
}

func (e *Engine) matchesPrefix() bool {
	if len(e.input) == 0 || len(e.input) > len(e.line) {
		return false
	}
	for i, r := range e.input {
		if e.line[i] != r {
			return false
		}
	}
	return true
}

func (e *Engine) completeLine() bool {
	if len(e.input) < len(e.line) || e.input[len(e.input)-1] != ' ' {
		return false
	}
	e.completedWords += len(strings.Split(string(e.line), " "))
	e.committed += len(e.line) + 1
	e.input = e.input[:0]
	e.line = e.upcoming
	e.upcoming = nil
	if len(e.line) > 0 {
		e.upcoming = []rune(e.src.NextLine())
	}
	return true
}

// Done reports whether the line source is exhausted.
func (e *Engine) Done() bool { return len(e.line) == 0 }

func (e *Engine) Input() string    { return string(e.input) }
func (e *Engine) Line() string     { return string(e.line) }
func (e *Engine) Upcoming() string { return string(e.upcoming) }

func (e *Engine) Errors() int          { return e.errors }
func (e *Engine) TotalCharacters() int { return e.total }
func (e *Engine) CompletedWords() int  { return e.completedWords }

// WordsTyped counts completed-line words plus the spaces in the partial input.
func (e *Engine) WordsTyped() int {
	n := e.completedWords
	for _, r := range e.input {
		if r == ' ' {
			n++
		}
	}
	return n
}

// Position is the number of characters consumed from the text so far,
// counting one separator per completed line.
func (e *Engine) Position() int {
	return e.committed + len(e.input)
}
