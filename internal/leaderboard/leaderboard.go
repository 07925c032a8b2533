// Package leaderboard records finished tests and answers the leaderboard and
// per-user history queries.
package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/playperu/typerace/internal/typerace"
)

const (
	DefaultTopN     = 50
	DefaultUserRuns = 100
	maxFetch        = 1000
)

type RunStore interface {
	AddRun(ctx context.Context, run typerace.Run) (typerace.Run, error)
	QueryRuns(ctx context.Context, q typerace.RunQuery) ([]typerace.Run, error)
}

// Names resolves the public username of an identity.
type Names interface {
	Resolve(ctx context.Context, id typerace.Identity) string
}

type Service struct {
	runs   RunStore
	names  Names
	logger *slog.Logger
}

func New(runs RunStore, names Names, logger *slog.Logger) *Service {
	return &Service{runs: runs, names: names, logger: logger}
}

// RunInput is a finished test as reported by the client.
type RunInput struct {
	ModeSeconds int               `json:"modeSeconds"`
	WPM         int               `json:"wpm"`
	Accuracy    int               `json:"accuracy"`
	Errors      int               `json:"errors"`
	WPMSeries   []typerace.Sample `json:"wpmSeries"`
}

// SubmitRun stores a run for a signed-in user. Runs of anonymous callers are
// dropped and reported with ok false.
func (s *Service) SubmitRun(ctx context.Context, id typerace.Identity, in RunInput) (run typerace.Run, ok bool, err error) {
	if id.Anonymous() {
		return typerace.Run{}, false, nil
	}
	run, err = s.runs.AddRun(ctx, typerace.Run{
		UID:       id.UID,
		Username:  s.names.Resolve(ctx, id),
		Mode:      in.ModeSeconds,
		WPM:       in.WPM,
		Accuracy:  in.Accuracy,
		Errors:    in.Errors,
		WPMSeries: in.WPMSeries,
	})
	if err != nil {
		return typerace.Run{}, false, fmt.Errorf("saving run: %w", err)
	}
	return run, true, nil
}

// FetchLeaderboard returns the best run of up to topN distinct usernames for
// a mode, fastest first. Runs before since are ignored when since is set.
func (s *Service) FetchLeaderboard(ctx context.Context, mode, topN int, since time.Time) ([]typerace.Run, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	q := typerace.RunQuery{
		Mode:  mode,
		Since: since,
		Order: typerace.OrderWPMDesc,
		Limit: min(topN*5, maxFetch),
	}

	runs, err := s.runs.QueryRuns(ctx, q)
	if err != nil {
		s.logger.Warn("ordered leaderboard query failed, sorting in process", "mode", mode, "error", err)
		q.Order = typerace.OrderNone
		runs, err = s.runs.QueryRuns(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("querying leaderboard: %w", err)
		}
		sort.SliceStable(runs, func(i, j int) bool { return runs[i].WPM > runs[j].WPM })
	}
	return uniqueByUsername(runs, topN), nil
}

// FetchUserRuns returns a user's most recent runs, newest first.
func (s *Service) FetchUserRuns(ctx context.Context, uid string, topN int) ([]typerace.Run, error) {
	if topN <= 0 {
		topN = DefaultUserRuns
	}
	q := typerace.RunQuery{UID: uid, Order: typerace.OrderNewest, Limit: topN}

	runs, err := s.runs.QueryRuns(ctx, q)
	if err != nil {
		s.logger.Warn("ordered history query failed, sorting in process", "uid", uid, "error", err)
		q.Order = typerace.OrderNone
		runs, err = s.runs.QueryRuns(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("querying runs: %w", err)
		}
		sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	}
	return runs, nil
}

func uniqueByUsername(runs []typerace.Run, topN int) []typerace.Run {
	seen := make(map[string]bool)
	out := []typerace.Run{}
	for _, r := range runs {
		name := strings.ToLower(r.Username)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, r)
		if len(out) >= topN {
			break
		}
	}
	return out
}
