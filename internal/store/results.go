package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sieve/internal/panel"
)

// Get returns the result stored under key, decoded as dtype. ok is false when
// no result is stored. A stored result of a different dtype is an error:
// keys embed the term identity, so it means the database is corrupt.
func (s *Store) Get(ctx context.Context, key string, dtype panel.DType) (panel.Array, bool, error) {
	var (
		storedType string
		rows, cols int
		payload    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT dtype, rows, cols, payload FROM results WHERE key = ?
	`, key).Scan(&storedType, &rows, &cols, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read result %s: %w", key, err)
	}

	if panel.DType(storedType) != dtype {
		return nil, false, fmt.Errorf("read result %s: stored dtype %s, requested %s", key, storedType, dtype)
	}

	a, err := panel.DecodeIPC(payload, dtype)
	if err != nil {
		return nil, false, fmt.Errorf("read result %s: %w", key, err)
	}
	if got := a.Shape(); got.Rows != rows || got.Cols != cols {
		return nil, false, fmt.Errorf("read result %s: payload shape %s, recorded (%d, %d)", key, got, rows, cols)
	}
	return a, true, nil
}

// Put stores a under key. Uses ON CONFLICT(key) DO NOTHING: the first result
// written for a key wins.
func (s *Store) Put(ctx context.Context, key string, a panel.Array) error {
	payload, err := panel.EncodeIPC(a)
	if err != nil {
		return fmt.Errorf("write result %s: %w", key, err)
	}

	shape := a.Shape()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (key, dtype, rows, cols, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		key,
		string(a.DType()),
		shape.Rows,
		shape.Cols,
		payload,
	)
	if err != nil {
		return fmt.Errorf("write result %s: %w", key, err)
	}
	return nil
}

// CountResults returns the number of stored results.
func (s *Store) CountResults(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}
