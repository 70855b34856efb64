package engine

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// Loader supplies the data of loadable terms.
//
// Load returns one array per requested column, keyed by ColumnName. Each
// array holds the trailing rows rows of the column, has the column's
// declared dtype, and has one column per entity. A loader that holds fewer
// rows returns an INSUFFICIENT_HISTORY error.
type Loader interface {
	Load(ctx context.Context, columns []term.Loadable, rows int) (map[string]panel.Array, error)
}

// MapLoader serves columns from in-memory arrays keyed by column name.
type MapLoader map[string]panel.Array

func (m MapLoader) Load(ctx context.Context, columns []term.Loadable, rows int) (map[string]panel.Array, error) {
	out := make(map[string]panel.Array, len(columns))
	for _, c := range columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := c.ColumnName()
		a, ok := m[name]
		if !ok {
			return nil, newMissingColumnError(name)
		}
		tail, err := trailing(name, a, rows)
		if err != nil {
			return nil, err
		}
		out[name] = tail
	}
	return out, nil
}

// ArrowLoader serves columns from arrow records, one record per column with
// one arrow column per entity and one arrow row per period. Nulls follow
// panel.FromRecord. The loader does not take ownership of the records.
type ArrowLoader map[string]arrow.Record

func (l ArrowLoader) Load(ctx context.Context, columns []term.Loadable, rows int) (map[string]panel.Array, error) {
	out := make(map[string]panel.Array, len(columns))
	for _, c := range columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := c.ColumnName()
		rec, ok := l[name]
		if !ok {
			return nil, newMissingColumnError(name)
		}
		a, err := panel.FromRecord(rec, c.DType())
		if err != nil {
			return nil, newColumnMismatchError(name, err.Error())
		}
		tail, err := trailing(name, a, rows)
		if err != nil {
			return nil, err
		}
		out[name] = tail
	}
	return out, nil
}

func trailing(name string, a panel.Array, rows int) (panel.Array, error) {
	have := a.Shape().Rows
	if have < rows {
		return nil, NewInsufficientHistoryError(name, have, rows)
	}
	if rows < 0 {
		return nil, fmt.Errorf("column %s: negative row count %d", name, rows)
	}
	return a.SliceRows(have-rows, have), nil
}
