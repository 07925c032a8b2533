package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/typerace/internal/docstore"
	"github.com/playperu/typerace/internal/typerace"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorStatus maps domain errors to HTTP statuses. Unknown errors are 500s
// and their text is not exposed.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, typerace.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, docstore.ErrUnknownCollection):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, typerace.ErrRaceAlreadyStarted),
		errors.Is(err, typerace.ErrRoomFull),
		errors.Is(err, typerace.ErrUsernameTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, typerace.ErrUsernameTooShort):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, typerace.ErrNotHost):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, typerace.ErrAnonymous):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}
