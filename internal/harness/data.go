package harness

import (
	"fmt"
	"math"

	"github.com/roach88/sieve/internal/engine"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// Loader builds an engine.MapLoader holding the scenario's data for
// columns, each converted to the column's dtype. Columns the scenario does
// not provide are left out so the engine reports them.
func (s *Scenario) Loader(columns []term.Loadable) (engine.MapLoader, error) {
	out := make(engine.MapLoader, len(columns))
	for _, c := range columns {
		m, ok := s.Columns[c.ColumnName()]
		if !ok {
			continue
		}
		a, err := m.Array(c.DType())
		if err != nil {
			return nil, fmt.Errorf("columns.%s: %w", c.ColumnName(), err)
		}
		out[c.ColumnName()] = a
	}
	return out, nil
}

// RootMask returns the scenario's mask, or an all-true mask covering the
// rows left after skipping extra lookback rows.
func (s *Scenario) RootMask(extra int) (*panel.BoolArray, error) {
	if len(s.Mask) > 0 {
		return panel.BoolRows(s.Mask)
	}
	rows := 0
	for _, m := range s.Columns {
		if rows == 0 || len(m) < rows {
			rows = len(m)
		}
	}
	rows -= extra
	if rows <= 0 {
		return nil, fmt.Errorf("data has no rows after %d lookback rows; give a mask", extra)
	}
	return panel.Full(panel.Shape{Rows: rows, Cols: len(s.Entities)}, true), nil
}

// Array converts m to an array of the given dtype.
func (m Matrix) Array(dtype panel.DType) (panel.Array, error) {
	rows := len(m)
	cols := 0
	if rows > 0 {
		cols = len(m[0])
	}

	switch dtype {
	case panel.Bool:
		values := make([]bool, 0, rows*cols)
		for i, row := range m {
			for j, v := range row {
				b, ok := v.(bool)
				if !ok {
					return nil, fmt.Errorf("[%d][%d]: want bool, got %v", i, j, v)
				}
				values = append(values, b)
			}
		}
		return panel.NewBool(rows, cols, values)

	case panel.Float64:
		values := make([]float64, 0, rows*cols)
		for i, row := range m {
			for j, v := range row {
				x, ok := toFloat(v)
				if !ok {
					return nil, fmt.Errorf("[%d][%d]: want number or null, got %v", i, j, v)
				}
				values = append(values, x)
			}
		}
		return panel.NewFloat64(rows, cols, values)

	case panel.Int64:
		values := make([]int64, 0, rows*cols)
		for i, row := range m {
			for j, v := range row {
				n, ok := v.(int)
				if !ok {
					return nil, fmt.Errorf("[%d][%d]: want integer, got %v", i, j, v)
				}
				values = append(values, int64(n))
			}
		}
		return panel.NewInt64(rows, cols, values)
	}
	return nil, fmt.Errorf("unknown dtype %q", dtype)
}

// toFloat accepts the scalar types yaml.v3 decodes numbers into. null is
// NaN.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return math.NaN(), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
