// Package profile manages public usernames.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/playperu/typerace/internal/typerace"
)

const (
	MinUsername    = 3
	MaxUsername    = 20
	ensureAttempts = 5
)

type Store interface {
	Profile(ctx context.Context, uid string) (typerace.Profile, error)
	ProfileByUsername(ctx context.Context, username string) (typerace.Profile, error)
	PutProfile(ctx context.Context, p typerace.Profile) (typerace.Profile, error)
}

// Sanitize lower-cases input, keeps [a-z0-9_] and truncates to MaxUsername.
// An empty result yields fallback.
func Sanitize(input, fallback string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			if b.Len() == MaxUsername {
				break
			}
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// DefaultUsername is the generated name of a user with no display name.
func DefaultUsername(uid string) string {
	if len(uid) > 6 {
		uid = uid[:6]
	}
	return "user_" + uid
}

type Service struct {
	store  Store
	logger *slog.Logger
	suffix func() int
}

func New(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		suffix: func() int { return rand.IntN(9000) + 1000 },
	}
}

// Ensure returns the caller's profile, creating one on first use. The
// username is derived from the display name, and a random four digit suffix
// is appended while it collides.
func (s *Service) Ensure(ctx context.Context, id typerace.Identity) (typerace.Profile, error) {
	if id.Anonymous() {
		return typerace.Profile{}, typerace.ErrAnonymous
	}
	existing, err := s.store.Profile(ctx, id.UID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, typerace.ErrNotFound) {
		return typerace.Profile{}, err
	}

	fallback := DefaultUsername(id.UID)
	candidate := Sanitize(id.DisplayName, fallback)
	for attempt := 0; attempt < ensureAttempts; attempt++ {
		free, err := s.free(ctx, candidate)
		if err != nil {
			return typerace.Profile{}, err
		}
		if free {
			break
		}
		candidate = Sanitize(candidate+strconv.Itoa(s.suffix()), fallback)
	}

	p, err := s.store.PutProfile(ctx, typerace.Profile{UID: id.UID, Username: candidate, AvatarURL: id.PhotoURL})
	if err != nil {
		return typerace.Profile{}, fmt.Errorf("creating profile: %w", err)
	}
	s.logger.Info("profile created", "uid", id.UID, "username", p.Username)
	return p, nil
}

func (s *Service) free(ctx context.Context, username string) (bool, error) {
	_, err := s.store.ProfileByUsername(ctx, username)
	if errors.Is(err, typerace.ErrNotFound) {
		return true, nil
	}
	return false, err
}

// Available reports whether desired sanitizes to a valid, unclaimed name.
func (s *Service) Available(ctx context.Context, desired string) (bool, error) {
	name := Sanitize(desired, "")
	if len(name) < MinUsername {
		return false, nil
	}
	return s.free(ctx, name)
}

// Claim sets the caller's username and refreshes the avatar from the
// identity. Keeping one's own name is allowed.
func (s *Service) Claim(ctx context.Context, id typerace.Identity, desired string) (typerace.Profile, error) {
	if id.Anonymous() {
		return typerace.Profile{}, typerace.ErrAnonymous
	}
	name := Sanitize(desired, "")
	if len(name) < MinUsername {
		return typerace.Profile{}, typerace.ErrUsernameTooShort
	}

	owner, err := s.store.ProfileByUsername(ctx, name)
	switch {
	case err == nil && owner.UID != id.UID:
		return typerace.Profile{}, typerace.ErrUsernameTaken
	case err != nil && !errors.Is(err, typerace.ErrNotFound):
		return typerace.Profile{}, err
	}

	p, err := s.store.Profile(ctx, id.UID)
	if err != nil && !errors.Is(err, typerace.ErrNotFound) {
		return typerace.Profile{}, err
	}
	p.UID = id.UID
	p.Username = name
	p.AvatarURL = id.PhotoURL
	return s.store.PutProfile(ctx, p)
}

// Resolve picks the public name of id: the stored username, then the
// display name, then the generated default.
func (s *Service) Resolve(ctx context.Context, id typerace.Identity) string {
	p, err := s.store.Profile(ctx, id.UID)
	if err == nil && p.Username != "" {
		return p.Username
	}
	if err != nil && !errors.Is(err, typerace.ErrNotFound) {
		s.logger.Warn("resolving username", "uid", id.UID, "error", err)
	}
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return DefaultUsername(id.UID)
}
