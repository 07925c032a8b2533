package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/typerace/internal/identity"
	"github.com/playperu/typerace/internal/profile"
)

type ClaimUsernameRequest struct {
	Username string `json:"username"`
}

type UsernameAvailability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// handleGetProfile returns the caller's profile, creating it on first use.
func handleGetProfile(logger *slog.Logger, svc *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Ensure(r.Context(), identity.FromContext(r.Context()))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleClaimUsername(logger *slog.Logger, svc *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClaimUsernameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p, err := svc.Claim(r.Context(), identity.FromContext(r.Context()), req.Username)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleUsernameAvailable(logger *slog.Logger, svc *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "username")
		ok, err := svc.Available(r.Context(), name)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, UsernameAvailability{
			Username:  profile.Sanitize(name, ""),
			Available: ok,
		})
	}
}
