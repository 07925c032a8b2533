package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/playperu/typerace/internal/typerace"
)

func (s *Store) Profile(ctx context.Context, uid string) (typerace.Profile, error) {
	var p typerace.Profile
	err := getDoc(ctx, s.db, `SELECT json(data) FROM profiles WHERE uid = ?`, &p, uid)
	return p, err
}

func (s *Store) ProfileByUsername(ctx context.Context, username string) (typerace.Profile, error) {
	var p typerace.Profile
	err := getDoc(ctx, s.db, `SELECT json(data) FROM profiles WHERE username = ?`, &p, username)
	return p, err
}

// PutProfile creates or replaces the profile of p.UID. A username held by a
// different uid yields ErrUsernameTaken.
func (s *Store) PutProfile(ctx context.Context, p typerace.Profile) (typerace.Profile, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return typerace.Profile{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (uid, username, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(uid) DO UPDATE SET username = excluded.username, data = excluded.data`,
		p.UID, p.Username, string(data),
	)
	if isUniqueViolation(err) {
		return typerace.Profile{}, typerace.ErrUsernameTaken
	}
	if err != nil {
		return typerace.Profile{}, fmt.Errorf("saving profile: %w", err)
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
