package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/playperu/typerace/internal/typerace"
)

func TestWatchRoom(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	room := createRoom(t, s)

	got := make(chan *typerace.Room, 8)
	stop, err := s.WatchRoom(ctx, room.ID, func(r *typerace.Room) { got <- r })
	if err != nil {
		t.Fatalf("WatchRoom: %v", err)
	}
	defer stop()

	select {
	case r := <-got:
		if r == nil || r.Status != typerace.StatusLobby {
			t.Fatalf("initial snapshot = %+v", r)
		}
	default:
		t.Fatal("initial snapshot not delivered before WatchRoom returned")
	}

	if _, err := s.ModifyRoom(ctx, room.ID, func(r *typerace.Room) error {
		r.Status = typerace.StatusCountdown
		return nil
	}); err != nil {
		t.Fatalf("ModifyRoom: %v", err)
	}

	select {
	case r := <-got:
		if r.Status != typerace.StatusCountdown {
			t.Errorf("status = %q, want countdown", r.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}
}

func TestWatchMissingRoom(t *testing.T) {
	s := newStore(t)
	got := make(chan *typerace.Room, 1)
	stop, err := s.WatchRoom(context.Background(), "missing", func(r *typerace.Room) { got <- r })
	if err != nil {
		t.Fatalf("WatchRoom: %v", err)
	}
	defer stop()
	if r := <-got; r != nil {
		t.Errorf("snapshot = %+v, want nil", r)
	}
}

func TestWatchPlayersSkipsUnchanged(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	room := createRoom(t, s)

	got := make(chan []typerace.Player, 8)
	stop, err := s.WatchPlayers(ctx, room.ID, func(ps []typerace.Player) { got <- ps })
	if err != nil {
		t.Fatalf("WatchPlayers: %v", err)
	}
	defer stop()
	<-got

	// Only the room topic fires: the roster watcher must stay quiet.
	if _, err := s.ModifyRoom(ctx, room.ID, func(r *typerace.Room) error {
		r.Status = typerace.StatusCountdown
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.JoinPlayer(ctx, room.ID, typerace.Player{UID: "p2", Username: "amy"}, nil); err != nil {
		t.Fatal(err)
	}

	select {
	case ps := <-got:
		if len(ps) != 2 {
			t.Errorf("len(players) = %d, want 2", len(ps))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("roster change not delivered")
	}
}

func TestWatchStop(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	room := createRoom(t, s)

	calls := make(chan struct{}, 8)
	stop, err := s.WatchRoom(ctx, room.ID, func(*typerace.Room) { calls <- struct{}{} })
	if err != nil {
		t.Fatal(err)
	}
	<-calls
	stop()
	stop()

	if _, err := s.ModifyRoom(ctx, room.ID, func(r *typerace.Room) error {
		r.Status = typerace.StatusCountdown
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
		t.Error("callback ran after stop")
	case <-time.After(100 * time.Millisecond):
	}
}
