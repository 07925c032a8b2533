package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/typerace/internal/rooms"
	"github.com/playperu/typerace/internal/typerace"
)

// StreamEvent is one snapshot pushed to a room subscriber. Data holds the
// room document ("room", null once deleted) or the roster ("players").
type StreamEvent struct {
	Type string          `json:"type" enum:"room,players"`
	Data json.RawMessage `json:"data"`
}

const (
	EventRoom    = "room"
	EventPlayers = "players"
)

// subscribeRoom watches the selected topics of a room and forwards every
// snapshot into the returned channel until ctx is done. The initial
// snapshots are already buffered when it returns. stop must be called after
// ctx is cancelled.
func subscribeRoom(ctx context.Context, svc *rooms.Service, roomID string, room, players bool) (<-chan StreamEvent, func(), error) {
	events := make(chan StreamEvent, 8)
	send := func(typ string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		select {
		case events <- StreamEvent{Type: typ, Data: data}:
		case <-ctx.Done():
		}
	}

	var stops []func()
	stop := func() {
		for _, s := range stops {
			s()
		}
	}

	if room {
		s, err := svc.OnRoomChange(ctx, roomID, func(r *typerace.Room) { send(EventRoom, r) })
		if err != nil {
			return nil, nil, err
		}
		stops = append(stops, s)
	}
	if players {
		s, err := svc.OnPlayersChange(ctx, roomID, func(ps []typerace.Player) { send(EventPlayers, ps) })
		if err != nil {
			stop()
			return nil, nil, err
		}
		stops = append(stops, s)
	}
	return events, stop, nil
}

// watchTopics reads the watch query parameter: room, players, or both when
// absent.
func watchTopics(r *http.Request) (room, players bool, ok bool) {
	switch r.URL.Query().Get("watch") {
	case "":
		return true, true, true
	case EventRoom:
		return true, false, true
	case EventPlayers:
		return false, true, true
	}
	return false, false, false
}

func handleEvents(logger *slog.Logger, svc *rooms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		watchRoom, watchPlayers, ok := watchTopics(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "watch must be room or players")
			return
		}
		if _, err := svc.Room(r.Context(), roomID); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		events, stop, err := subscribeRoom(ctx, svc, roomID, watchRoom, watchPlayers)
		if err != nil {
			cancel()
			writeServiceError(w, r, logger, err)
			return
		}
		defer stop()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
