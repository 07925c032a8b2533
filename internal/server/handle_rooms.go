package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/typerace/internal/identity"
	"github.com/playperu/typerace/internal/passage"
	"github.com/playperu/typerace/internal/profile"
	"github.com/playperu/typerace/internal/race"
	"github.com/playperu/typerace/internal/rooms"
	"github.com/playperu/typerace/internal/typerace"
)

type CreateRoomRequest struct {
	Username      string `json:"username,omitempty"`
	ModeSeconds   int    `json:"modeSeconds,omitempty"`
	Seed          string `json:"seed,omitempty"`
	Passage       string `json:"passage,omitempty"`
	PassageLength string `json:"passageLength,omitempty" enum:"short,medium,long"`
}

// RoomSnapshot is a room together with its roster.
type RoomSnapshot struct {
	Room    typerace.Room     `json:"room"`
	Players []typerace.Player `json:"players"`
}

type JoinRoomRequest struct {
	Username string `json:"username,omitempty"`
}

type StartRaceRequest struct {
	// CountdownMS overrides the server's countdown. Negative values are ignored.
	CountdownMS *int `json:"countdownMs,omitempty"`
}

type AnnounceStatusRequest struct {
	Status typerace.RoomStatus `json:"status" enum:"in_progress,finished"`
}

type FinishRequest struct {
	WPM      int `json:"wpm"`
	Accuracy int `json:"accuracy"`
}

// displayName picks the name a player shows up with in a room.
func displayName(r *http.Request, profiles *profile.Service, requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return profiles.Resolve(r.Context(), identity.FromContext(r.Context()))
}

func handleCreateRoom(logger *slog.Logger, svc *rooms.Service, profiles *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoomRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ModeSeconds < 0 {
			writeError(w, http.StatusBadRequest, "modeSeconds must be positive")
			return
		}

		id := identity.FromContext(r.Context())
		room, err := svc.CreateRoom(r.Context(), rooms.CreateRoomInput{
			HostID:        id.UID,
			Username:      displayName(r, profiles, req.Username),
			ModeSeconds:   req.ModeSeconds,
			Seed:          req.Seed,
			Passage:       req.Passage,
			PassageLength: passage.Length(req.PassageLength),
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeSnapshot(w, r, logger, svc, room.ID, http.StatusCreated)
	}
}

func handleGetRoom(logger *slog.Logger, svc *rooms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSnapshot(w, r, logger, svc, chi.URLParam(r, "roomID"), http.StatusOK)
	}
}

// RaceResults summarises a room: the leading players by progress and, once
// the race is finished, the fastest finisher.
type RaceResults struct {
	Status    typerace.RoomStatus `json:"status"`
	Standings []typerace.Player   `json:"standings"`
	Winner    *typerace.Player    `json:"winner,omitempty"`
}

func handleResults(logger *slog.Logger, svc *rooms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, players, err := svc.Snapshot(r.Context(), chi.URLParam(r, "roomID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		res := RaceResults{Status: room.Status, Standings: race.Standings(players, race.TopK)}
		if room.Status == typerace.StatusFinished {
			if p, ok := race.Winner(players); ok {
				res.Winner = &p
			}
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeSnapshot(w http.ResponseWriter, r *http.Request, logger *slog.Logger, svc *rooms.Service, roomID string, status int) {
	room, players, err := svc.Snapshot(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return
	}
	writeJSON(w, status, RoomSnapshot{Room: room, Players: players})
}

func handleJoinRoom(logger *slog.Logger, svc *rooms.Service, profiles *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRoomRequest
		if r.ContentLength != 0 {
			if err := readJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		roomID := chi.URLParam(r, "roomID")
		id := identity.FromContext(r.Context())
		if err := svc.JoinRoom(r.Context(), roomID, id.UID, displayName(r, profiles, req.Username)); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeSnapshot(w, r, logger, svc, roomID, http.StatusOK)
	}
}

func handleStartRace(logger *slog.Logger, svc *rooms.Service, countdown time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRaceRequest
		if r.ContentLength != 0 {
			if err := readJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		d := countdown
		if req.CountdownMS != nil && *req.CountdownMS >= 0 {
			d = time.Duration(*req.CountdownMS) * time.Millisecond
		}

		id := identity.FromContext(r.Context())
		if err := svc.StartRace(r.Context(), chi.URLParam(r, "roomID"), id.UID, d); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleAnnounceStatus lets any participant move a room forward once the
// countdown elapsed or everyone finished. Stale announcements are no-ops.
func handleAnnounceStatus(logger *slog.Logger, svc *rooms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnnounceStatusRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		roomID := chi.URLParam(r, "roomID")
		var err error
		switch req.Status {
		case typerace.StatusInProgress:
			err = svc.SetInProgress(r.Context(), roomID)
		case typerace.StatusFinished:
			err = svc.FinishRace(r.Context(), roomID)
		default:
			writeError(w, http.StatusBadRequest, "status must be in_progress or finished")
			return
		}
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleProgress(logger *slog.Logger, svc *rooms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req typerace.ProgressUpdate
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id := identity.FromContext(r.Context())
		if err := svc.UpdatePlayerProgress(r.Context(), chi.URLParam(r, "roomID"), id.UID, req); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleFinish(logger *slog.Logger, svc *rooms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FinishRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id := identity.FromContext(r.Context())
		if err := svc.FinishPlayer(r.Context(), chi.URLParam(r, "roomID"), id.UID, req.WPM, req.Accuracy); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
