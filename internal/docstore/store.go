// Package docstore is a document store with push subscriptions on top of
// libSQL. Every collection is a table whose rows hold the JSONB document
// next to the columns used for lookups; every write publishes a change
// notification that wakes the matching watchers.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/typerace/internal/typerace"
)

// ErrNoChange aborts a Modify* callback without writing or notifying.
var ErrNoChange = errors.New("no change")

const timeLayout = "2006-01-02T15:04:05.000Z"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db       *sql.DB
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func New(db *sql.DB, notifier Notifier, logger *slog.Logger) *Store {
	return &Store{db: db, notifier: notifier, logger: logger, now: time.Now}
}

func RoomTopic(roomID string) string    { return "room:" + roomID }
func PlayersTopic(roomID string) string { return "players:" + roomID }

func newID() string { return uuid.NewString() }

func stamp(t time.Time) string { return t.UTC().Format(timeLayout) }

// notify is best effort: a lost notification only delays watchers until the
// next change.
func (s *Store) notify(ctx context.Context, topics ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, topic := range topics {
		if err := s.notifier.Publish(ctx, topic, []byte(topic)); err != nil {
			s.logger.Warn("change notification failed", "topic", topic, "error", err)
		}
	}
}

func getDoc(ctx context.Context, q querier, query string, dest any, args ...any) error {
	var data string
	err := q.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return typerace.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// listDocs materialises every row before returning so the single pooled
// connection is free for the caller's next statement.
func listDocs[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Rooms

func putRoom(ctx context.Context, q querier, r typerace.Room) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO rooms (id, status, host_id, created_at, data) VALUES (?, ?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, data = excluded.data`,
		r.ID, string(r.Status), r.HostID, stamp(r.CreatedAt), string(data),
	)
	return err
}

// CreateRoom stores room together with its host player and returns the room
// with its generated id.
func (s *Store) CreateRoom(ctx context.Context, room typerace.Room, host typerace.Player) (typerace.Room, error) {
	if room.ID == "" {
		room.ID = newID()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return typerace.Room{}, err
	}
	defer tx.Rollback()

	if err := putRoom(ctx, tx, room); err != nil {
		return typerace.Room{}, fmt.Errorf("inserting room: %w", err)
	}
	if err := putPlayer(ctx, tx, room.ID, host); err != nil {
		return typerace.Room{}, fmt.Errorf("inserting host: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return typerace.Room{}, err
	}

	s.notify(ctx, RoomTopic(room.ID), PlayersTopic(room.ID))
	return room, nil
}

func (s *Store) Room(ctx context.Context, id string) (typerace.Room, error) {
	var r typerace.Room
	err := getDoc(ctx, s.db, `SELECT json(data) FROM rooms WHERE id = ?`, &r, id)
	return r, err
}

// ModifyRoom loads a room, applies fn and saves it in a transaction.
func (s *Store) ModifyRoom(ctx context.Context, id string, fn func(*typerace.Room) error) (typerace.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return typerace.Room{}, err
	}
	defer tx.Rollback()

	var r typerace.Room
	if err := getDoc(ctx, tx, `SELECT json(data) FROM rooms WHERE id = ?`, &r, id); err != nil {
		return typerace.Room{}, err
	}
	if err := fn(&r); err != nil {
		if errors.Is(err, ErrNoChange) {
			return r, nil
		}
		return typerace.Room{}, err
	}
	if err := putRoom(ctx, tx, r); err != nil {
		return typerace.Room{}, err
	}
	if err := tx.Commit(); err != nil {
		return typerace.Room{}, err
	}

	s.notify(ctx, RoomTopic(id))
	return r, nil
}

// Players

func putPlayer(ctx context.Context, q querier, roomID string, p typerace.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO players (room_id, uid, username, data) VALUES (?, ?, ?, jsonb(?))
		 ON CONFLICT(room_id, uid) DO UPDATE SET username = excluded.username, data = excluded.data`,
		roomID, p.UID, p.Username, string(data),
	)
	return err
}

// Players returns the roster of a room ordered by username.
func (s *Store) Players(ctx context.Context, roomID string) ([]typerace.Player, error) {
	return listDocs[typerace.Player](ctx, s.db,
		`SELECT json(data) FROM players WHERE room_id = ? ORDER BY username, uid`, roomID)
}

// Admit decides whether a player may enter room given the current roster
// size and whether the player already has a record there.
type Admit func(room typerace.Room, players int, member bool) error

// JoinPlayer upserts p into the room's roster if admit allows it. The room
// check and the write happen in one transaction. A nil admit lets everyone in.
func (s *Store) JoinPlayer(ctx context.Context, roomID string, p typerace.Player, admit Admit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var r typerace.Room
	if err := getDoc(ctx, tx, `SELECT json(data) FROM rooms WHERE id = ?`, &r, roomID); err != nil {
		return err
	}

	var count, member int
	err = tx.QueryRowContext(ctx,
		`SELECT count(*), coalesce(sum(uid = ?), 0) FROM players WHERE room_id = ?`, p.UID, roomID,
	).Scan(&count, &member)
	if err != nil {
		return err
	}
	if admit != nil {
		if err := admit(r, count, member > 0); err != nil {
			return err
		}
	}

	if err := putPlayer(ctx, tx, roomID, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify(ctx, PlayersTopic(roomID))
	return nil
}

// ModifyPlayer loads one player record, applies fn and saves it in a
// transaction.
func (s *Store) ModifyPlayer(ctx context.Context, roomID, uid string, fn func(*typerace.Player) error) (typerace.Player, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return typerace.Player{}, err
	}
	defer tx.Rollback()

	var p typerace.Player
	if err := getDoc(ctx, tx, `SELECT json(data) FROM players WHERE room_id = ? AND uid = ?`, &p, roomID, uid); err != nil {
		return typerace.Player{}, err
	}
	if err := fn(&p); err != nil {
		if errors.Is(err, ErrNoChange) {
			return p, nil
		}
		return typerace.Player{}, err
	}
	if err := putPlayer(ctx, tx, roomID, p); err != nil {
		return typerace.Player{}, err
	}
	if err := tx.Commit(); err != nil {
		return typerace.Player{}, err
	}

	s.notify(ctx, PlayersTopic(roomID))
	return p, nil
}
