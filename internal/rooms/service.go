// Package rooms implements the multiplayer room operations on top of the
// document store: creation, joining, the monotonic status lifecycle and the
// per-player progress record.
package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/playperu/typerace/internal/docstore"
	"github.com/playperu/typerace/internal/passage"
	"github.com/playperu/typerace/internal/typerace"
)

// DefaultModeSeconds is the race duration when none is requested.
const DefaultModeSeconds = 15

// Store is the persistence the service needs. *docstore.Store satisfies it.
type Store interface {
	CreateRoom(ctx context.Context, room typerace.Room, host typerace.Player) (typerace.Room, error)
	Room(ctx context.Context, id string) (typerace.Room, error)
	Players(ctx context.Context, roomID string) ([]typerace.Player, error)
	ModifyRoom(ctx context.Context, id string, fn func(*typerace.Room) error) (typerace.Room, error)
	JoinPlayer(ctx context.Context, roomID string, p typerace.Player, admit docstore.Admit) error
	ModifyPlayer(ctx context.Context, roomID, uid string, fn func(*typerace.Player) error) (typerace.Player, error)
	WatchRoom(ctx context.Context, id string, fn func(*typerace.Room)) (func(), error)
	WatchPlayers(ctx context.Context, roomID string, fn func([]typerace.Player)) (func(), error)
}

type Options struct {
	// MaxPlayers caps a room's roster. Zero means unlimited.
	MaxPlayers int
	Now        func() time.Time
}

type Service struct {
	store      Store
	logger     *slog.Logger
	maxPlayers int
	now        func() time.Time
}

func New(store Store, logger *slog.Logger, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, maxPlayers: opts.MaxPlayers, now: now}
}

type CreateRoomInput struct {
	HostID        string
	Username      string
	ModeSeconds   int
	Seed          string
	Passage       string
	PassageLength passage.Length
}

// CreateRoom opens a lobby with the caller as host and first player.
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (typerace.Room, error) {
	if in.HostID == "" {
		return typerace.Room{}, typerace.ErrAnonymous
	}
	now := s.now()

	room := typerace.Room{
		Status:      typerace.StatusLobby,
		ModeSeconds: in.ModeSeconds,
		Seed:        in.Seed,
		HostID:      in.HostID,
		CreatedAt:   now,
		Passage:     in.Passage,
	}
	if room.ModeSeconds <= 0 {
		room.ModeSeconds = DefaultModeSeconds
	}
	if room.Seed == "" {
		room.Seed = strconv.FormatInt(now.UnixMilli(), 10)
	}
	if in.PassageLength != "" {
		room.PassageLength = string(in.PassageLength.Normalize())
		if room.Passage == "" {
			room.Passage = passage.Generate(room.Seed, in.PassageLength.Normalize())
		}
	}

	host := typerace.Player{
		UID:        in.HostID,
		Username:   in.Username,
		JoinedAt:   now,
		Accuracy:   100,
		LastUpdate: now,
	}
	room, err := s.store.CreateRoom(ctx, room, host)
	if err != nil {
		return typerace.Room{}, fmt.Errorf("creating room: %w", err)
	}
	s.logger.Info("room created", "room_id", room.ID, "uid", in.HostID, "mode", room.ModeSeconds)
	return room, nil
}

// JoinRoom adds uid to a lobby, resetting any previous record it had there.
func (s *Service) JoinRoom(ctx context.Context, roomID, uid, username string) error {
	if uid == "" {
		return typerace.ErrAnonymous
	}
	now := s.now()
	p := typerace.Player{
		UID:        uid,
		Username:   username,
		JoinedAt:   now,
		Accuracy:   100,
		LastUpdate: now,
	}
	err := s.store.JoinPlayer(ctx, roomID, p, func(r typerace.Room, n int, member bool) error {
		if r.Status != typerace.StatusLobby {
			return typerace.ErrRaceAlreadyStarted
		}
		if !member && s.maxPlayers > 0 && n >= s.maxPlayers {
			return typerace.ErrRoomFull
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("player joined", "room_id", roomID, "uid", uid)
	return nil
}

// StartRace moves a lobby into the countdown and fixes startAt. Only the host
// may start a race, and only once.
func (s *Service) StartRace(ctx context.Context, roomID, uid string, countdown time.Duration) error {
	_, err := s.store.ModifyRoom(ctx, roomID, func(r *typerace.Room) error {
		if r.HostID != uid {
			return typerace.ErrNotHost
		}
		if r.Status != typerace.StatusLobby {
			return typerace.ErrRaceAlreadyStarted
		}
		at := s.now().Add(countdown)
		r.Status = typerace.StatusCountdown
		r.StartAt = &at
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("race starting", "room_id", roomID, "countdown", countdown)
	return nil
}

// SetInProgress and FinishRace only ever move a room one step forward;
// anything else is a no-op so that concurrent observers may all announce.
func (s *Service) SetInProgress(ctx context.Context, roomID string) error {
	return s.advance(ctx, roomID, typerace.StatusInProgress)
}

func (s *Service) FinishRace(ctx context.Context, roomID string) error {
	return s.advance(ctx, roomID, typerace.StatusFinished)
}

func (s *Service) advance(ctx context.Context, roomID string, to typerace.RoomStatus) error {
	_, err := s.store.ModifyRoom(ctx, roomID, func(r *typerace.Room) error {
		if !r.Status.Next(to) {
			return docstore.ErrNoChange
		}
		r.Status = to
		return nil
	})
	return err
}

// UpdatePlayerProgress applies a live progress push. Progress and input
// length never decrease and a finished record is frozen.
func (s *Service) UpdatePlayerProgress(ctx context.Context, roomID, uid string, u typerace.ProgressUpdate) error {
	_, err := s.store.ModifyPlayer(ctx, roomID, uid, func(p *typerace.Player) error {
		if p.FinishedAt != nil {
			return docstore.ErrNoChange
		}
		if u.Progress != nil {
			p.Progress = max(p.Progress, typerace.ClampProgress(*u.Progress))
		}
		if u.InputLength != nil {
			p.InputLength = max(p.InputLength, *u.InputLength)
		}
		if u.WPM != nil {
			p.WPM = *u.WPM
		}
		if u.Accuracy != nil {
			p.Accuracy = *u.Accuracy
		}
		p.LastUpdate = s.now()
		return nil
	})
	return err
}

// FinishPlayer records the final metrics once. Later calls are no-ops.
func (s *Service) FinishPlayer(ctx context.Context, roomID, uid string, wpm, accuracy int) error {
	_, err := s.store.ModifyPlayer(ctx, roomID, uid, func(p *typerace.Player) error {
		if p.FinishedAt != nil {
			return docstore.ErrNoChange
		}
		now := s.now()
		p.FinishedAt = &now
		p.Progress = 1
		p.WPM = wpm
		p.Accuracy = accuracy
		p.LastUpdate = now
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("player finished", "room_id", roomID, "uid", uid, "wpm", wpm, "accuracy", accuracy)
	return nil
}

func (s *Service) OnRoomChange(ctx context.Context, roomID string, fn func(*typerace.Room)) (func(), error) {
	return s.store.WatchRoom(ctx, roomID, fn)
}

func (s *Service) OnPlayersChange(ctx context.Context, roomID string, fn func([]typerace.Player)) (func(), error) {
	return s.store.WatchPlayers(ctx, roomID, fn)
}

func (s *Service) Room(ctx context.Context, roomID string) (typerace.Room, error) {
	return s.store.Room(ctx, roomID)
}

func (s *Service) Players(ctx context.Context, roomID string) ([]typerace.Player, error) {
	return s.store.Players(ctx, roomID)
}

// Snapshot returns a room together with its roster.
func (s *Service) Snapshot(ctx context.Context, roomID string) (typerace.Room, []typerace.Player, error) {
	room, err := s.store.Room(ctx, roomID)
	if err != nil {
		return typerace.Room{}, nil, err
	}
	players, err := s.store.Players(ctx, roomID)
	if err != nil {
		return typerace.Room{}, nil, fmt.Errorf("listing players: %w", err)
	}
	return room, players, nil
}
