package race

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/typerace/internal/typerace"
)

// Backend is the document store surface the coordinator drives. It is
// implemented in-process by rooms.Service and remotely by raceclient.Client.
type Backend interface {
	StartRace(ctx context.Context, roomID, uid string, countdown time.Duration) error
	SetInProgress(ctx context.Context, roomID string) error
	FinishRace(ctx context.Context, roomID string) error
	UpdatePlayerProgress(ctx context.Context, roomID, uid string, u typerace.ProgressUpdate) error
	FinishPlayer(ctx context.Context, roomID, uid string, wpm, accuracy int) error
	OnRoomChange(ctx context.Context, roomID string, fn func(*typerace.Room)) (func(), error)
	OnPlayersChange(ctx context.Context, roomID string, fn func([]typerace.Player)) (func(), error)
}

// View is what a coordinator publishes to its consumer after every
// snapshot.
type View struct {
	Room    *typerace.Room
	Players []typerace.Player
	Status  typerace.RoomStatus
	StartAt *time.Time
}

type Options struct {
	InstantCountdown bool
	Logger           *slog.Logger
	Now              func() time.Time
}

// Coordinator adapts document store subscriptions to the state machine and
// executes the resulting commands. Commands are fire-and-forget: failures
// are logged and fed back so a later snapshot can retry them.
type Coordinator struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	room    *typerace.Room
	timer   *time.Timer
	updates chan View
	unsubs  []func()
	closed  bool
}

// Open subscribes to the room and its roster and starts reacting to
// snapshots.
func Open(ctx context.Context, backend Backend, roomID, uid string, opts Options) (*Coordinator, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &Coordinator{
		backend: backend,
		logger:  opts.Logger.With("room_id", roomID, "uid", uid),
		now:     opts.Now,
		ctx:     cctx,
		cancel:  cancel,
		state:   NewState(roomID, uid, opts.InstantCountdown),
		updates: make(chan View, 1),
	}

	unsubRoom, err := backend.OnRoomChange(cctx, roomID, func(room *typerace.Room) {
		c.apply(RoomObserved{Room: room}, room)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribing to room: %w", err)
	}
	unsubPlayers, err := backend.OnPlayersChange(cctx, roomID, func(players []typerace.Player) {
		c.apply(PlayersObserved{Players: players}, nil)
	})
	if err != nil {
		unsubRoom()
		cancel()
		return nil, fmt.Errorf("subscribing to players: %w", err)
	}

	c.mu.Lock()
	c.unsubs = []func(){unsubRoom, unsubPlayers}
	c.mu.Unlock()
	return c, nil
}

// ErrNotReady is returned when acting on a room before its first snapshot.
var ErrNotReady = errors.New("room not observed yet")

// Updates delivers the latest view. Slow consumers only ever miss
// intermediate views, never the most recent one.
func (c *Coordinator) Updates() <-chan View { return c.updates }

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Players = append([]typerace.Player(nil), s.Players...)
	return s
}

// StartRace starts the countdown. Only the host may start, and only from
// the lobby.
func (c *Coordinator) StartRace(countdown time.Duration) error {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()

	if s.HostID == "" {
		return ErrNotReady
	}
	if !s.IsHost() {
		return typerace.ErrNotHost
	}
	if s.Status != typerace.StatusLobby {
		return typerace.ErrRaceAlreadyStarted
	}
	c.apply(StartRequested{Countdown: countdown}, nil)
	return nil
}

// Close unsubscribes and waits for in-flight commands.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	c.cancel()
	for _, fn := range unsubs {
		fn()
	}
	c.wg.Wait()
}

func (c *Coordinator) apply(ev Event, room *typerace.Room) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var cmds []Command
	c.state, cmds = Transition(c.state, ev)
	if room != nil {
		c.room = room
	}
	view := View{
		Room:    c.room,
		Players: c.state.Players,
		Status:  c.state.Status,
		StartAt: c.state.StartAt,
	}
	for _, cmd := range cmds {
		c.dispatch(cmd)
	}
	switch ev.(type) {
	case RoomObserved, PlayersObserved:
		c.publish(view)
	}
	c.mu.Unlock()
}

// dispatch and publish run with c.mu held.
func (c *Coordinator) dispatch(cmd Command) {
	if sched, ok := cmd.(ScheduleInProgress); ok {
		wait := max(sched.At.Sub(c.now()), 0)
		c.timer = time.AfterFunc(wait, func() { c.apply(CountdownElapsed{}, nil) })
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.execute(cmd); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Warn("race command failed", "command", fmt.Sprintf("%T", cmd), "error", err)
			c.apply(CommandFailed{Command: cmd}, nil)
		}
	}()
}

func (c *Coordinator) execute(cmd Command) error {
	s := c.State()
	switch cmd := cmd.(type) {
	case StartRace:
		return c.backend.StartRace(c.ctx, s.RoomID, s.Self, cmd.Countdown)
	case SetInProgress:
		return c.backend.SetInProgress(c.ctx, s.RoomID)
	case FinishRace:
		return c.backend.FinishRace(c.ctx, s.RoomID)
	}
	return nil
}

func (c *Coordinator) publish(v View) {
	select {
	case c.updates <- v:
		return
	default:
	}
	// Replace the stale pending view with the fresh one.
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- v:
	default:
	}
}
