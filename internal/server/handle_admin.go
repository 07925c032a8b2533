package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type DeleteCollectionResponse struct {
	Collection string `json:"collection"`
	Deleted    int    `json:"deleted"`
}

func handleDeleteCollection(logger *slog.Logger, m Maintainer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, ok := queryInt(r, "batch", 0)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid batch")
			return
		}
		name := chi.URLParam(r, "name")
		n, err := m.DeleteCollection(r.Context(), name, batch)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		logger.Warn("collection deleted", "collection", name, "deleted", n)
		writeJSON(w, http.StatusOK, DeleteCollectionResponse{Collection: name, Deleted: n})
	}
}
