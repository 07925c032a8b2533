package typing

import (
	"strings"
	"testing"

	"github.com/playperu/typerace/internal/passage"
)

// lines is a LineSource over a fixed list; exhausted lists yield "".
type lines []string

func (l *lines) NextLine() string {
	if len(*l) == 0 {
		return ""
	}
	line := (*l)[0]
	*l = (*l)[1:]
	return line
}

func newEngine(ls ...string) *Engine {
	src := lines(ls)
	return NewEngine(&src)
}

func typeKeys(e *Engine, keys ...string) {
	for _, k := range keys {
		e.Handle(KeyEvent{Key: k})
	}
}

func typeText(e *Engine, text string) {
	for _, r := range text {
		e.Handle(KeyEvent{Key: string(r)})
	}
}

func TestEngineTraceWithMistypedChar(t *testing.T) {
	e := newEngine("the cat sat", "next line")
	typeKeys(e, "t", "h", "e", " ", "c", "a", "x", " ")

	if got := e.Input(); got != "the cax " {
		t.Errorf("input = %q, want %q", got, "the cax ")
	}
	if e.Errors() != 1 {
		t.Errorf("errors = %d, want 1", e.Errors())
	}
	if e.TotalCharacters() != 8 {
		t.Errorf("total = %d, want 8", e.TotalCharacters())
	}
	if e.Line() != "the cat sat" {
		t.Errorf("line advanced unexpectedly to %q", e.Line())
	}
}

func TestEngineModifiersIgnored(t *testing.T) {
	e := newEngine("abc")
	for _, ev := range []KeyEvent{
		{Key: "a", Ctrl: true},
		{Key: "a", Alt: true},
		{Key: "a", Meta: true},
		{Key: KeyBackspace, Ctrl: true},
	} {
		if eff := e.Handle(ev); eff.Accepted {
			t.Errorf("%+v accepted", ev)
		}
	}
	if e.Input() != "" || e.TotalCharacters() != 0 {
		t.Errorf("state changed: input %q total %d", e.Input(), e.TotalCharacters())
	}
}

func TestEngineIgnoresNamedKeys(t *testing.T) {
	e := newEngine("abc")
	typeKeys(e, "Shift", "Enter", "Tab", "ArrowLeft", "\t", "")
	if e.Input() != "" || e.Errors() != 0 || e.TotalCharacters() != 0 {
		t.Errorf("named keys changed state: input %q errors %d total %d", e.Input(), e.Errors(), e.TotalCharacters())
	}
}

func TestEngineCharBeyondLineRejected(t *testing.T) {
	e := newEngine("ab")
	typeKeys(e, "a", "b", "c")
	if e.Input() != "ab" {
		t.Errorf("input = %q, want %q", e.Input(), "ab")
	}
	if e.TotalCharacters() != 2 {
		t.Errorf("total = %d, want 2", e.TotalCharacters())
	}
}

func TestEngineCharOnExpectedSpaceIsError(t *testing.T) {
	e := newEngine("a b")
	typeKeys(e, "a", "b")
	if e.Errors() != 1 {
		t.Errorf("errors = %d, want 1", e.Errors())
	}
	if e.Input() != "ab" {
		t.Errorf("input = %q, want %q", e.Input(), "ab")
	}
}

func TestEngineBackspaceAsymmetry(t *testing.T) {
	e := newEngine("ab cd")
	typeKeys(e, "a", "b", " ", KeyBackspace)
	if e.TotalCharacters() != 3 {
		t.Errorf("space deletion changed total: %d, want 3", e.TotalCharacters())
	}
	typeKeys(e, KeyBackspace)
	if e.TotalCharacters() != 2 {
		t.Errorf("char deletion: total = %d, want 2", e.TotalCharacters())
	}
	if e.Input() != "a" {
		t.Errorf("input = %q, want %q", e.Input(), "a")
	}
	typeKeys(e, KeyBackspace, KeyBackspace)
	if e.Input() != "" || e.TotalCharacters() != 1 {
		t.Errorf("empty buffer backspace: input %q total %d", e.Input(), e.TotalCharacters())
	}
}

func TestEngineErrorsNeverDecrease(t *testing.T) {
	e := newEngine("abc")
	typeKeys(e, "x")
	typeKeys(e, KeyBackspace)
	typeKeys(e, "a")
	if e.Errors() != 1 {
		t.Errorf("errors = %d, want 1 after correction", e.Errors())
	}
}

func TestEngineSpaceRules(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		before     string
		wantInput  string
		wantErrors int
	}{
		{"expected space", "ab cd", "ab", "ab ", 0},
		{"exact prefix mid-word", "abc de", "ab", "ab ", 0},
		{"mismatched mid-word rejected", "abc de", "ax", "ax", 2},
		{"empty input rejected", "abc", "", "", 1},
		{"at end of line", "abc", "abx", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := lines{tt.line, "zz"}
			e := NewEngine(&src)
			typeText(e, tt.before)
			e.Handle(KeyEvent{Key: KeySpace})
			if e.Input() != tt.wantInput {
				t.Errorf("input = %q, want %q", e.Input(), tt.wantInput)
			}
			if e.Errors() != tt.wantErrors {
				t.Errorf("errors = %d, want %d", e.Errors(), tt.wantErrors)
			}
		})
	}
}

func TestEngineLineCompletion(t *testing.T) {
	e := newEngine("ab cd", "ef gh ij", "kl")

	typeText(e, "ab cd")
	if e.CompletedWords() != 0 {
		t.Fatalf("completed before trailing space")
	}
	eff := e.Handle(KeyEvent{Key: KeySpace})
	if !eff.LineDone {
		t.Fatalf("expected line completion")
	}
	if e.CompletedWords() != 2 {
		t.Errorf("completedWords = %d, want 2", e.CompletedWords())
	}
	if e.Input() != "" {
		t.Errorf("input not reset: %q", e.Input())
	}
	if e.Line() != "ef gh ij" || e.Upcoming() != "kl" {
		t.Errorf("line = %q upcoming = %q", e.Line(), e.Upcoming())
	}
	if e.Position() != 6 {
		t.Errorf("position = %d, want 6", e.Position())
	}

	typeText(e, "ef gh ij ")
	if e.CompletedWords() != 5 {
		t.Errorf("completedWords = %d, want 5", e.CompletedWords())
	}
	if e.Line() != "kl" || e.Upcoming() != "" {
		t.Errorf("line = %q upcoming = %q", e.Line(), e.Upcoming())
	}

	typeText(e, "kl ")
	if !e.Done() {
		t.Errorf("engine should be done after the last line")
	}
	if eff := e.Handle(KeyEvent{Key: "a"}); eff.Accepted {
		t.Errorf("input accepted after exhaustion")
	}
}

func TestEngineWordsTyped(t *testing.T) {
	e := newEngine("one two three", "four")
	typeText(e, "one two ")
	if got := e.WordsTyped(); got != 2 {
		t.Errorf("WordsTyped = %d, want 2", got)
	}
	typeText(e, "three ")
	if got := e.WordsTyped(); got != 3 {
		t.Errorf("WordsTyped = %d, want 3", got)
	}
}

func TestEngineCounterReconciles(t *testing.T) {
	e := newEngine("hello world again", "next")
	keys := []string{"h", "e", "l", "x", KeyBackspace, "l", "o", " ", "w", KeyBackspace, KeyBackspace, " ", "w"}
	typeKeys(e, keys...)

	committed, deleted := 0, 0
	buf := []rune{}
	for _, k := range keys {
		switch k {
		case KeyBackspace:
			if n := len(buf); n > 0 {
				if buf[n-1] != ' ' {
					deleted++
				}
				buf = buf[:n-1]
			}
		default:
			buf = append(buf, []rune(k)...)
			committed++
		}
	}
	if got, want := e.TotalCharacters(), committed-deleted; got != want {
		t.Errorf("total = %d, want %d", got, want)
	}
	if e.Input() != string(buf) {
		t.Errorf("input = %q, want %q", e.Input(), string(buf))
	}
}

func TestEngineUnicode(t *testing.T) {
	e := newEngine("ñandú café")
	typeText(e, "ñandú café ")
	if e.Errors() != 0 {
		t.Errorf("errors = %d, want 0", e.Errors())
	}
	if !e.Done() {
		t.Errorf("expected the single line to complete")
	}
}

func TestEngineWithGenerator(t *testing.T) {
	g := passage.NewSeeded("abc")
	e := NewEngine(g)
	first := e.Line()
	typeText(e, first+" ")
	if e.CompletedWords() != passage.WordsPerLine {
		t.Errorf("completedWords = %d, want %d", e.CompletedWords(), passage.WordsPerLine)
	}
	if e.Errors() != 0 {
		t.Errorf("errors = %d, want 0", e.Errors())
	}
	if len(strings.Fields(e.Line())) != passage.WordsPerLine {
		t.Errorf("next line = %q", e.Line())
	}
}

func TestEngineReset(t *testing.T) {
	e := newEngine("abc")
	typeKeys(e, "x", "y")
	src := lines{"def"}
	e.Reset(&src)
	if e.Errors() != 0 || e.TotalCharacters() != 0 || e.Input() != "" || e.Line() != "def" {
		t.Errorf("reset left state: errors %d total %d input %q line %q", e.Errors(), e.TotalCharacters(), e.Input(), e.Line())
	}
}
