package server

import (
	"net/http"
	"strconv"

	"github.com/playperu/typerace/internal/passage"
)

type PassageResponse struct {
	Seed   string `json:"seed,omitempty"`
	Length string `json:"length,omitempty"`
	Text   string `json:"text"`
}

// handlePassage serves practice texts: the deterministic passage for a seed
// and length preset, a random quote (kind=quote) or a word list
// (kind=words&count=N).
func handlePassage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("kind") {
		case "", "passage":
		case "quote":
			writeJSON(w, http.StatusOK, PassageResponse{Text: passage.Quote()})
			return
		case "words":
			count, err := strconv.Atoi(q.Get("count"))
			if err != nil || count <= 0 || count > 500 {
				writeError(w, http.StatusBadRequest, "count must be between 1 and 500")
				return
			}
			writeJSON(w, http.StatusOK, PassageResponse{Text: passage.WordList(count)})
			return
		default:
			writeError(w, http.StatusBadRequest, "kind must be passage, quote or words")
			return
		}

		seed := q.Get("seed")
		if seed == "" {
			writeError(w, http.StatusBadRequest, "seed is required")
			return
		}
		length := passage.Length(q.Get("length")).Normalize()
		writeJSON(w, http.StatusOK, PassageResponse{
			Seed:   seed,
			Length: string(length),
			Text:   passage.Generate(seed, length),
		})
	}
}
