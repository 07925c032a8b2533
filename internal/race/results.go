package race

import (
	"slices"

	"github.com/playperu/typerace/internal/typerace"
)

// TopK is how many players the summary shows.
const TopK = 5

// Standings ranks players by progress, highest first; ties keep roster
// order. k <= 0 returns everyone.
func Standings(players []typerace.Player, k int) []typerace.Player {
	out := slices.Clone(players)
	slices.SortStableFunc(out, func(a, b typerace.Player) int {
		switch {
		case a.Progress > b.Progress:
			return -1
		case a.Progress < b.Progress:
			return 1
		}
		return 0
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// ByWPM ranks players by final WPM, highest first.
func ByWPM(players []typerace.Player) []typerace.Player {
	out := slices.Clone(players)
	slices.SortStableFunc(out, func(a, b typerace.Player) int { return b.WPM - a.WPM })
	return out
}

// Winner is the fastest player, if any.
func Winner(players []typerace.Player) (typerace.Player, bool) {
	ranked := ByWPM(players)
	if len(ranked) == 0 {
		return typerace.Player{}, false
	}
	return ranked[0], true
}
