package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/typerace/internal/rooms"
)

const streamWriteTimeout = 5 * time.Second

// handleStream pushes the same snapshots as handleEvents as JSON text frames
// over a WebSocket. Messages from the client are not read; closing the
// connection ends the subscription.
func handleStream(logger *slog.Logger, svc *rooms.Service) http.HandlerFunc {
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

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())
		ctx, cancel := context.WithCancel(ctx)
		events, stop, err := subscribeRoom(ctx, svc, roomID, watchRoom, watchPlayers)
		if err != nil {
			cancel()
			logger.Error("room subscription failed", "room_id", roomID, "error", err)
			conn.Close(websocket.StatusInternalError, "subscription failed")
			return
		}
		defer stop()
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket stream ended", "room_id", roomID, "error", ctx.Err())
				return
			case ev := <-events:
				wctx, wcancel := context.WithTimeout(ctx, streamWriteTimeout)
				err := wsjson.Write(wctx, conn, ev)
				wcancel()
				if err != nil {
					logger.Debug("websocket write failed", "room_id", roomID, "error", err)
					return
				}
			}
		}
	}
}
