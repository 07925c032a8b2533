package passage

import "strings"

// Length is a multiplayer passage preset.
type Length string

const (
	Short  Length = "short"
	Medium Length = "medium"
	Long   Length = "long"
)

// Target is the approximate passage size in characters. Unknown presets
// fall back to the medium target.
func (l Length) Target() int {
	switch l {
	case Short:
		return 280
	case Long:
		return 900
	}
	return 500
}

// Normalize maps unknown or empty presets to Medium.
func (l Length) Normalize() Length {
	switch l {
	case Short, Medium, Long:
		return l
	}
	return Medium
}

// Generate builds the passage for seed: whole generated lines are appended
// until the target is reached, then the result is cut back to the last word
// boundary.
func Generate(seed string, length Length) string {
	g := NewSeeded(seed)
	target := length.Target()

	var b strings.Builder
	for b.Len() < target {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g.NextLine())
	}

	text := b.String()
	if i := strings.LastIndexByte(text, ' '); i > 0 && len(text) > target {
		text = text[:i]
	}
	return text
}
