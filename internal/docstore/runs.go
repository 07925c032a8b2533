package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/playperu/typerace/internal/typerace"
)

// AddRun persists a finished test and returns it with id and timestamp set.
func (s *Store) AddRun(ctx context.Context, run typerace.Run) (typerace.Run, error) {
	if run.ID == "" {
		run.ID = newID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	if run.WPMSeries == nil {
		run.WPMSeries = []typerace.Sample{}
	}

	data, err := json.Marshal(run)
	if err != nil {
		return typerace.Run{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, uid, username, mode, wpm, created_at, data) VALUES (?, ?, ?, ?, ?, ?, jsonb(?))`,
		run.ID, run.UID, run.Username, run.Mode, run.WPM, stamp(run.CreatedAt), string(data),
	)
	if err != nil {
		return typerace.Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// QueryRuns lists runs matching q.
func (s *Store) QueryRuns(ctx context.Context, q typerace.RunQuery) ([]typerace.Run, error) {
	var (
		where []string
		args  []any
	)
	if q.Mode > 0 {
		where = append(where, "mode = ?")
		args = append(args, q.Mode)
	}
	if q.UID != "" {
		where = append(where, "uid = ?")
		args = append(args, q.UID)
	}
	if !q.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, stamp(q.Since))
	}

	var b strings.Builder
	b.WriteString("SELECT json(data) FROM runs")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	switch q.Order {
	case typerace.OrderWPMDesc:
		b.WriteString(" ORDER BY wpm DESC, created_at ASC")
	case typerace.OrderNewest:
		b.WriteString(" ORDER BY created_at DESC")
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	return listDocs[typerace.Run](ctx, s.db, b.String(), args...)
}
