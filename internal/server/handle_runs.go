package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/typerace/internal/identity"
	"github.com/playperu/typerace/internal/leaderboard"
)

// handleSubmitRun stores a finished test. Anonymous submissions are accepted
// and dropped with 204.
func handleSubmitRun(logger *slog.Logger, svc *leaderboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req leaderboard.RunInput
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ModeSeconds <= 0 {
			writeError(w, http.StatusBadRequest, "modeSeconds must be positive")
			return
		}

		run, ok, err := svc.SubmitRun(r.Context(), identity.FromContext(r.Context()), req)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusCreated, run)
	}
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func handleLeaderboard(logger *slog.Logger, svc *leaderboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, ok := queryInt(r, "mode", 15)
		if !ok || mode == 0 {
			writeError(w, http.StatusBadRequest, "invalid mode")
			return
		}
		top, ok := queryInt(r, "top", leaderboard.DefaultTopN)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid top")
			return
		}
		var since time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "since must be RFC 3339")
				return
			}
			since = t
		}

		runs, err := svc.FetchLeaderboard(r.Context(), mode, top, since)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleUserRuns(logger *slog.Logger, svc *leaderboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		top, ok := queryInt(r, "top", leaderboard.DefaultUserRuns)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid top")
			return
		}
		runs, err := svc.FetchUserRuns(r.Context(), chi.URLParam(r, "uid"), top)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}
