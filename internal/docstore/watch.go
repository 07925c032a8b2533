package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/playperu/typerace/internal/typerace"
)

// WatchRoom calls fn with the current room before returning and again after
// every change. A missing room is delivered as nil. Calls for one watch are
// sequential. The returned func stops the watch and waits for an in-flight
// callback to return.
func (s *Store) WatchRoom(ctx context.Context, id string, fn func(*typerace.Room)) (func(), error) {
	return watch(ctx, s, RoomTopic(id), func(ctx context.Context) (*typerace.Room, error) {
		r, err := s.Room(ctx, id)
		if errors.Is(err, typerace.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &r, nil
	}, fn)
}

// WatchPlayers is WatchRoom for a room's roster.
func (s *Store) WatchPlayers(ctx context.Context, roomID string, fn func([]typerace.Player)) (func(), error) {
	return watch(ctx, s, PlayersTopic(roomID), func(ctx context.Context) ([]typerace.Player, error) {
		return s.Players(ctx, roomID)
	}, fn)
}

func watch[T any](ctx context.Context, s *Store, topic string, load func(context.Context) (T, error), fn func(T)) (func(), error) {
	// Subscribe before the first read so no change slips in between.
	ch := s.notifier.Subscribe(topic)

	snap, err := load(ctx)
	if err != nil {
		s.notifier.Unsubscribe(topic, ch)
		return nil, err
	}
	last, _ := json.Marshal(snap)
	fn(snap)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.notifier.Unsubscribe(topic, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
			snap, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("reloading watched snapshot", "topic", topic, "error", err)
				}
				continue
			}
			data, _ := json.Marshal(snap)
			if bytes.Equal(data, last) {
				continue
			}
			last = data
			fn(snap)
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
