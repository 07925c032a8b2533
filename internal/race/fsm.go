// Package race coordinates a multiplayer race from one participant's point
// of view. The lifecycle is an explicit state machine fed with document
// store snapshots; every decision it takes is idempotent and monotonic, so
// any number of observers may reach the same conclusion concurrently.
package race

import (
	"time"

	"github.com/playperu/typerace/internal/typerace"
)

// State is one observer's view of a room.
type State struct {
	RoomID  string
	Self    string
	HostID  string
	Status  typerace.RoomStatus
	StartAt *time.Time
	Players []typerace.Player

	// InstantCountdown collapses countdown into in_progress as soon as it is
	// observed instead of waiting for StartAt.
	InstantCountdown bool

	// requested is the furthest status this observer has asked the store
	// for; it keeps duplicate snapshots from re-issuing commands.
	requested typerace.RoomStatus
	scheduled bool
}

// NewState returns the initial lobby view for self in roomID.
func NewState(roomID, self string, instant bool) State {
	return State{
		RoomID:           roomID,
		Self:             self,
		Status:           typerace.StatusLobby,
		InstantCountdown: instant,
		requested:        typerace.StatusLobby,
	}
}

// IsHost reports whether the observer created the room.
func (s State) IsHost() bool { return s.HostID != "" && s.HostID == s.Self }

// AllDone reports whether a non-empty roster has completely finished.
func AllDone(players []typerace.Player) bool {
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !p.Done() {
			return false
		}
	}
	return true
}

// Event is an input to Transition.
type Event interface{ event() }

// RoomObserved carries a room snapshot; a nil Room means the room is gone.
type RoomObserved struct{ Room *typerace.Room }

// PlayersObserved carries a full roster snapshot.
type PlayersObserved struct{ Players []typerace.Player }

// StartRequested is the local host pressing start.
type StartRequested struct{ Countdown time.Duration }

// CountdownElapsed fires when a scheduled countdown reaches StartAt.
type CountdownElapsed struct{}

// CommandFailed reports that the store rejected or never received cmd; the
// observer becomes willing to issue it again.
type CommandFailed struct{ Command Command }

func (RoomObserved) event()     {}
func (PlayersObserved) event()  {}
func (StartRequested) event()   {}
func (CountdownElapsed) event() {}
func (CommandFailed) event()    {}

// Command is a side effect requested by Transition.
type Command interface{ command() }

// StartRace asks the store to leave the lobby.
type StartRace struct{ Countdown time.Duration }

// ScheduleInProgress asks the driver to deliver CountdownElapsed at At.
type ScheduleInProgress struct{ At time.Time }

// SetInProgress announces the race as running.
type SetInProgress struct{}

// FinishRace announces the race as over.
type FinishRace struct{}

func (StartRace) command()          {}
func (ScheduleInProgress) command() {}
func (SetInProgress) command()      {}
func (FinishRace) command()         {}

// Transition is the pure state machine: it never blocks and performs no I/O.
func Transition(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case RoomObserved:
		return observeRoom(s, ev.Room)
	case PlayersObserved:
		s.Players = ev.Players
		return checkFinished(s)
	case StartRequested:
		if !s.IsHost() || s.Status != typerace.StatusLobby || s.requested.Rank() >= typerace.StatusCountdown.Rank() {
			return s, nil
		}
		s.requested = typerace.StatusCountdown
		return s, []Command{StartRace{Countdown: ev.Countdown}}
	case CountdownElapsed:
		return enterInProgress(s)
	case CommandFailed:
		return retry(s, ev.Command), nil
	}
	return s, nil
}

func observeRoom(s State, room *typerace.Room) (State, []Command) {
	if room == nil {
		return s, nil
	}
	// Stale snapshots never move the observer backwards.
	if room.Status.Rank() < s.Status.Rank() {
		return s, nil
	}

	s.Status = room.Status
	s.HostID = room.HostID
	if room.StartAt != nil {
		s.StartAt = room.StartAt
	}
	if s.requested.Rank() < s.Status.Rank() {
		s.requested = s.Status
	}

	switch s.Status {
	case typerace.StatusCountdown:
		if s.InstantCountdown || s.StartAt == nil {
			return enterInProgress(s)
		}
		if s.scheduled {
			return s, nil
		}
		s.scheduled = true
		return s, []Command{ScheduleInProgress{At: *s.StartAt}}
	case typerace.StatusInProgress:
		return checkFinished(s)
	}
	return s, nil
}

func enterInProgress(s State) (State, []Command) {
	if s.Status != typerace.StatusCountdown || s.requested.Rank() >= typerace.StatusInProgress.Rank() {
		return s, nil
	}
	s.requested = typerace.StatusInProgress
	return s, []Command{SetInProgress{}}
}

func checkFinished(s State) (State, []Command) {
	if s.Status != typerace.StatusInProgress || s.requested.Rank() >= typerace.StatusFinished.Rank() {
		return s, nil
	}
	if !AllDone(s.Players) {
		return s, nil
	}
	s.requested = typerace.StatusFinished
	return s, []Command{FinishRace{}}
}

func retry(s State, cmd Command) State {
	var want typerace.RoomStatus
	switch cmd.(type) {
	case StartRace:
		want = typerace.StatusCountdown
	case SetInProgress:
		want = typerace.StatusInProgress
	case FinishRace:
		want = typerace.StatusFinished
	default:
		return s
	}
	// Only roll back a request the store has not confirmed yet.
	if s.requested == want && s.Status.Rank() < want.Rank() {
		s.requested = s.Status
		if want == typerace.StatusInProgress {
			s.scheduled = false
		}
	}
	return s
}
