package docstore

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownCollection = errors.New("unknown collection")

// Collections lists the collections DeleteCollection accepts.
var Collections = []string{"rooms", "players", "runs", "profiles"}

// DefaultBatchSize is the deletion batch used when none is given.
const DefaultBatchSize = 500

// DeleteCollection removes every document of a collection in batches and
// returns how many were deleted. Deleting rooms also deletes their players.
func (s *Store) DeleteCollection(ctx context.Context, name string, batch int) (int, error) {
	known := false
	for _, c := range Collections {
		if c == name {
			known = true
		}
	}
	if !known {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	if name == "rooms" {
		if _, err := s.deleteBatches(ctx, "players", batch); err != nil {
			return 0, err
		}
	}
	return s.deleteBatches(ctx, name, batch)
}

func (s *Store) deleteBatches(ctx context.Context, table string, batch int) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE rowid IN (SELECT rowid FROM %s LIMIT ?)`, table, table)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := s.db.ExecContext(ctx, query, batch)
		if err != nil {
			return total, fmt.Errorf("deleting from %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += int(n)
		s.logger.Debug("deleted batch", "collection", table, "count", n)
		if n < int64(batch) {
			return total, nil
		}
	}
}
