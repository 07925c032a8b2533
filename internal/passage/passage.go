// Package passage supplies the text players type: an explicitly owned,
// optionally seeded word generator, fixed-passage line windows and the
// multiplayer passage presets.
package passage

import (
	"math/rand/v2"
	"strings"
	"unicode/utf16"
)

const (
	// WordsPerLine is how many words make up one generated line.
	WordsPerLine = 9
	minQueueSize = 50
)

// Generator produces an endless sequence of lines. A seeded generator is
// fully deterministic: two generators given the same seed yield identical
// lines.
type Generator struct {
	queue []string

	seeded bool
	state  uint32
	rnd    *rand.Rand
}

// NewGenerator returns an unseeded generator backed by a time-seeded source.
func NewGenerator() *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a generator already reseeded with seed.
func NewSeeded(seed string) *Generator {
	g := NewGenerator()
	g.SetSeed(seed)
	return g
}

// SetSeed switches the generator to the deterministic sequence for seed and
// drops any buffered words.
func (g *Generator) SetSeed(seed string) {
	s := hashSeed(seed)
	g.seeded = true
	g.state = s
	g.queue = nil
}

func hashSeed(seed string) uint32 {
	if seed == "" {
		seed = "default"
	}
	var s uint32
	for _, c := range utf16.Encode([]rune(seed)) {
		s = s*31 + uint32(c)
	}
	if s == 0 {
		s = 1
	}
	return s
}

// float returns the next value in [0,1).
func (g *Generator) float() float64 {
	if !g.seeded {
		return g.rnd.Float64()
	}
	g.state = 1664525*g.state + 1013904223
	return float64(g.state) / 4294967296
}

func (g *Generator) word() string {
	return commonWords[int(g.float()*float64(len(commonWords)))]
}

func (g *Generator) fill() {
	for len(g.queue) < minQueueSize {
		for range minQueueSize {
			g.queue = append(g.queue, g.word())
		}
	}
}

// NextLine returns the next WordsPerLine words joined by single spaces.
func (g *Generator) NextLine() string {
	g.fill()
	words := make([]string, WordsPerLine)
	copy(words, g.queue[:WordsPerLine])
	g.queue = g.queue[WordsPerLine:]
	return strings.Join(words, " ")
}

// Fixed walks a fixed passage in windows of a set number of words. Once the
// passage is exhausted NextLine returns "".
type Fixed struct {
	words   []string
	perLine int
	pos     int
}

func NewFixed(text string, wordsPerLine int) *Fixed {
	if wordsPerLine <= 0 {
		wordsPerLine = WordsPerLine
	}
	return &Fixed{words: strings.Fields(text), perLine: wordsPerLine}
}

func (f *Fixed) NextLine() string {
	if f.pos >= len(f.words) {
		return ""
	}
	end := min(f.pos+f.perLine, len(f.words))
	line := strings.Join(f.words[f.pos:end], " ")
	f.pos = end
	return line
}

// Len is the number of characters in the normalised passage: every line plus
// one separating space between consecutive lines.
func (f *Fixed) Len() int {
	n := 0
	for i, w := range f.words {
		if i > 0 {
			n++
		}
		n += len([]rune(w))
	}
	return n
}

// Quote returns a random quote or, less often, a paragraph.
func Quote() string {
	if rand.Float64() < 0.7 {
		return quotes[rand.IntN(len(quotes))]
	}
	return paragraphs[rand.IntN(len(paragraphs))]
}

// WordList returns count random words from the thirty most common ones.
func WordList(count int) string {
	words := make([]string, 0, max(count, 0))
	for range count {
		words = append(words, commonWords[rand.IntN(30)])
	}
	return strings.Join(words, " ")
}
