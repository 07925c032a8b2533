package raceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/typerace/internal/typerace"
)

type streamEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// OnRoomChange streams room snapshots over a WebSocket. The first snapshot
// is delivered before it returns; later ones arrive from one goroutine until
// the returned func is called or ctx ends.
func (c *Client) OnRoomChange(ctx context.Context, roomID string, fn func(*typerace.Room)) (func(), error) {
	return c.watch(ctx, roomID, "room", func(data json.RawMessage) error {
		var r *typerace.Room
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		fn(r)
		return nil
	})
}

// OnPlayersChange is OnRoomChange for the roster.
func (c *Client) OnPlayersChange(ctx context.Context, roomID string, fn func([]typerace.Player)) (func(), error) {
	return c.watch(ctx, roomID, "players", func(data json.RawMessage) error {
		var ps []typerace.Player
		if err := json.Unmarshal(data, &ps); err != nil {
			return err
		}
		fn(ps)
		return nil
	})
}

func (c *Client) wsURL(roomID, topic string) string {
	u := c.baseURL + roomPath(roomID, "/ws?watch="+topic)
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (c *Client) watch(ctx context.Context, roomID, topic string, deliver func(json.RawMessage) error) (func(), error) {
	// The dialer rejects clients with a Timeout; ctx bounds the stream.
	hc := *c.http
	hc.Timeout = 0
	opts := &websocket.DialOptions{HTTPClient: &hc, HTTPHeader: http.Header{}}
	if c.token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.Dial(ctx, c.wsURL(roomID, topic), opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, typerace.ErrNotFound
		}
		return nil, fmt.Errorf("subscribing to %s of room %s: %w", topic, roomID, err)
	}
	conn.SetReadLimit(1 << 20)

	var first streamEvent
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("reading initial %s snapshot: %w", topic, err)
	}
	if err := deliver(first.Data); err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("decoding %s snapshot: %w", topic, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer conn.CloseNow()
		for {
			var ev streamEvent
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("room stream ended", "room_id", roomID, "topic", topic, "error", err)
				}
				return
			}
			if ev.Type != topic {
				continue
			}
			if err := deliver(ev.Data); err != nil {
				c.logger.Warn("bad snapshot", "room_id", roomID, "topic", topic, "error", err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}
