package race

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/playperu/typerace/internal/typerace"
)

// memBackend is an in-memory document store with synchronous push
// subscriptions, mirroring the monotonic guards of the real store.
type memBackend struct {
	mu       sync.Mutex
	room     typerace.Room
	players  map[string]typerace.Player
	roomSubs map[int]func(*typerace.Room)
	plSubs   map[int]func([]typerace.Player)
	nextSub  int
	calls    map[string]int
	failNext map[string]bool
	now      func() time.Time
}

func newMemBackend(hostID string, uids ...string) *memBackend {
	b := &memBackend{
		room:     typerace.Room{ID: "r1", Status: typerace.StatusLobby, HostID: hostID, Seed: "abc"},
		players:  make(map[string]typerace.Player),
		roomSubs: make(map[int]func(*typerace.Room)),
		plSubs:   make(map[int]func([]typerace.Player)),
		calls:    make(map[string]int),
		failNext: make(map[string]bool),
		now:      time.Now,
	}
	for _, uid := range append([]string{hostID}, uids...) {
		b.players[uid] = typerace.Player{UID: uid, Username: uid, Accuracy: 100}
	}
	return b
}

func (b *memBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *memBackend) player(uid string) typerace.Player {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.players[uid]
}

func (b *memBackend) status() typerace.RoomStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.room.Status
}

func (b *memBackend) enter(name string) error {
	b.calls[name]++
	if b.failNext[name] {
		b.failNext[name] = false
		return errors.New("unavailable")
	}
	return nil
}

func (b *memBackend) roster() []typerace.Player {
	out := make([]typerace.Player, 0, len(b.players))
	for _, p := range b.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (b *memBackend) notifyRoom() {
	b.mu.Lock()
	room := b.room
	subs := make([]func(*typerace.Room), 0, len(b.roomSubs))
	for _, fn := range b.roomSubs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		r := room
		fn(&r)
	}
}

func (b *memBackend) notifyPlayers() {
	b.mu.Lock()
	players := b.roster()
	subs := make([]func([]typerace.Player), 0, len(b.plSubs))
	for _, fn := range b.plSubs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(append([]typerace.Player(nil), players...))
	}
}

func (b *memBackend) setStatus(name string, from, to typerace.RoomStatus, mutate func(*typerace.Room)) error {
	b.mu.Lock()
	if err := b.enter(name); err != nil {
		b.mu.Unlock()
		return err
	}
	if b.room.Status != from {
		b.mu.Unlock()
		return nil
	}
	b.room.Status = to
	if mutate != nil {
		mutate(&b.room)
	}
	b.mu.Unlock()
	b.notifyRoom()
	return nil
}

func (b *memBackend) StartRace(_ context.Context, _, uid string, countdown time.Duration) error {
	b.mu.Lock()
	host := b.room.HostID
	b.mu.Unlock()
	if uid != host {
		return typerace.ErrNotHost
	}
	return b.setStatus("StartRace", typerace.StatusLobby, typerace.StatusCountdown, func(r *typerace.Room) {
		at := b.now().Add(countdown)
		r.StartAt = &at
	})
}

func (b *memBackend) SetInProgress(context.Context, string) error {
	return b.setStatus("SetInProgress", typerace.StatusCountdown, typerace.StatusInProgress, nil)
}

func (b *memBackend) FinishRace(context.Context, string) error {
	return b.setStatus("FinishRace", typerace.StatusInProgress, typerace.StatusFinished, nil)
}

func (b *memBackend) UpdatePlayerProgress(_ context.Context, _, uid string, u typerace.ProgressUpdate) error {
	b.mu.Lock()
	if err := b.enter("UpdatePlayerProgress"); err != nil {
		b.mu.Unlock()
		return err
	}
	p := b.players[uid]
	if p.FinishedAt == nil {
		if u.Progress != nil {
			p.Progress = max(p.Progress, typerace.ClampProgress(*u.Progress))
		}
		if u.WPM != nil {
			p.WPM = *u.WPM
		}
		b.players[uid] = p
	}
	b.mu.Unlock()
	b.notifyPlayers()
	return nil
}

func (b *memBackend) FinishPlayer(_ context.Context, _, uid string, wpm, accuracy int) error {
	b.mu.Lock()
	if err := b.enter("FinishPlayer"); err != nil {
		b.mu.Unlock()
		return err
	}
	p := b.players[uid]
	if p.FinishedAt == nil {
		now := b.now()
		p.FinishedAt = &now
		p.Progress = 1
		p.WPM, p.Accuracy = wpm, accuracy
		b.players[uid] = p
	}
	b.mu.Unlock()
	b.notifyPlayers()
	return nil
}

func (b *memBackend) OnRoomChange(_ context.Context, _ string, fn func(*typerace.Room)) (func(), error) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.roomSubs[id] = fn
	room := b.room
	b.mu.Unlock()
	fn(&room)
	return func() {
		b.mu.Lock()
		delete(b.roomSubs, id)
		b.mu.Unlock()
	}, nil
}

func (b *memBackend) OnPlayersChange(_ context.Context, _ string, fn func([]typerace.Player)) (func(), error) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.plSubs[id] = fn
	players := b.roster()
	b.mu.Unlock()
	fn(players)
	return func() {
		b.mu.Lock()
		delete(b.plSubs, id)
		b.mu.Unlock()
	}, nil
}
