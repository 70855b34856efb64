package filter_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/filter"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

func floats(t *testing.T, rows ...[]float64) *panel.Float64Array {
	t.Helper()
	a, err := panel.Float64Rows(rows)
	require.NoError(t, err)
	return a
}

func bools(t *testing.T, rows ...[]bool) *panel.BoolArray {
	t.Helper()
	a, err := panel.BoolRows(rows)
	require.NoError(t, err)
	return a
}

func computeBool(t *testing.T, f term.Term, arrays []panel.Array, mask *panel.BoolArray) []bool {
	t.Helper()
	out, err := f.ComputeFromArrays(arrays, mask)
	require.NoError(t, err)
	return out.(*panel.BoolArray).Values
}

func TestNewPercentileFilter_Bounds(t *testing.T) {
	price := numeric(t, "pct_bounds_price")

	tests := []struct {
		min, max float64
		ok       bool
	}{
		{0, 100, true},
		{20, 80, true},
		{0, 0.5, true},
		{99.5, 100, true},
		{50, 50, false},
		{80, 20, false},
		{-1, 50, false},
		{10, 100.5, false},
		{math.NaN(), 50, false},
		{0, math.NaN(), false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g_%g", tt.min, tt.max), func(t *testing.T) {
			f, err := filter.NewPercentileFilter(price, tt.min, tt.max)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.min, f.MinPercentile())
				assert.Equal(t, tt.max, f.MaxPercentile())
				assert.Equal(t, 0, f.WindowLength())
				return
			}
			require.Error(t, err)
			assert.True(t, term.IsBadPercentileBounds(err), "got %v", err)
		})
	}
}

func TestNewPercentileFilter_RequiresFactor(t *testing.T) {
	flag := column(t, "pct_requires_flag")
	_, err := filter.NewPercentileFilter(flag, 10, 90)
	require.Error(t, err)
	assert.True(t, term.IsExpectedFactor(err))

	_, err = filter.NewPercentileFilter(nil, 10, 90)
	require.Error(t, err)
}

func TestNewPercentileFilter_Identity(t *testing.T) {
	price := numeric(t, "pct_identity_price")

	a, err := filter.NewPercentileFilter(price, 20, 80)
	require.NoError(t, err)
	b, err := filter.NewPercentileFilter(price, 20.0, 80.0)
	require.NoError(t, err)
	c, err := filter.NewPercentileFilter(price, 20, 90)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestPercentileFilter_MiddleBand(t *testing.T) {
	price := numeric(t, "pct_middle_price")
	f, err := filter.NewPercentileFilter(price, 20, 80)
	require.NoError(t, err)

	data := floats(t, []float64{10, 20, 30, 40, 50})
	mask := panel.Full(data.Shape(), true)

	got := computeBool(t, f, []panel.Array{data}, mask)
	assert.Equal(t, []bool{false, true, true, true, false}, got)
}

func TestPercentileFilter_InclusiveBounds(t *testing.T) {
	price := numeric(t, "pct_inclusive_price")
	f, err := filter.NewPercentileFilter(price, 0, 100)
	require.NoError(t, err)

	data := floats(t, []float64{3, 1, 2})
	got := computeBool(t, f, []panel.Array{data}, panel.Full(data.Shape(), true))
	assert.Equal(t, []bool{true, true, true}, got, "min and max values sit exactly on the bounds")
}

func TestPercentileFilter_MaskedEntitiesExcludedFromStatistics(t *testing.T) {
	price := numeric(t, "pct_masked_price")
	f, err := filter.NewPercentileFilter(price, 50, 100)
	require.NoError(t, err)

	// Without masking, 1000 would drag the median up to 30.
	data := floats(t, []float64{10, 20, 30, 1000})
	mask := bools(t, []bool{true, true, true, false})

	got := computeBool(t, f, []panel.Array{data}, mask)
	assert.Equal(t, []bool{false, true, true, false}, got)
}

func TestPercentileFilter_NaNInputsIgnored(t *testing.T) {
	price := numeric(t, "pct_nan_price")
	f, err := filter.NewPercentileFilter(price, 0, 50)
	require.NoError(t, err)

	data := floats(t, []float64{math.NaN(), 1, 2, 3})
	got := computeBool(t, f, []panel.Array{data}, panel.Full(data.Shape(), true))
	assert.Equal(t, []bool{false, true, true, false}, got)
}

func TestPercentileFilter_InfiniteValues(t *testing.T) {
	price := numeric(t, "pct_inf_price")
	f, err := filter.NewPercentileFilter(price, 10, 90)
	require.NoError(t, err)

	data := floats(t,
		[]float64{math.Inf(-1), 10, 20, 30, 40, 50},
		[]float64{10, 20, 30, 40, 50, math.Inf(1)},
	)
	got := computeBool(t, f, []panel.Array{data}, panel.Full(data.Shape(), true))
	assert.Equal(t, []bool{
		true, true, true, true, true, false, // bounds (-Inf, 45)
		false, true, true, true, true, true, // bounds (15, +Inf)
	}, got)
}

func TestPercentileFilter_RowsIndependent(t *testing.T) {
	price := numeric(t, "pct_rows_price")
	f, err := filter.NewPercentileFilter(price, 50, 100)
	require.NoError(t, err)

	data := floats(t,
		[]float64{1, 2, 3},
		[]float64{300, 200, 100},
	)
	got := computeBool(t, f, []panel.Array{data}, panel.Full(data.Shape(), true))
	assert.Equal(t, []bool{false, true, true, true, true, false}, got)
}

func TestPercentileFilter_DegenerateRows(t *testing.T) {
	price := numeric(t, "pct_degenerate_price")
	f, err := filter.NewPercentileFilter(price, 20, 80)
	require.NoError(t, err)

	data := floats(t,
		[]float64{5, 6, 7},
		[]float64{5, 6, 7},
	)
	mask := bools(t,
		[]bool{false, false, false},
		[]bool{false, true, false},
	)

	got := computeBool(t, f, []panel.Array{data}, mask)
	assert.Equal(t, []bool{
		false, false, false, // no valid entity: nothing passes
		false, true, false, // one valid entity: it passes
	}, got)
}

func TestPercentileFilter_IntInput(t *testing.T) {
	volume := numeric(t, "pct_int_volume")
	f, err := filter.NewPercentileFilter(volume, 20, 80)
	require.NoError(t, err)

	data, err := panel.Int64Rows([][]int64{{10, 20, 30, 40, 50}})
	require.NoError(t, err)
	got := computeBool(t, f, []panel.Array{data}, panel.Full(data.Shape(), true))
	assert.Equal(t, []bool{false, true, true, true, false}, got)
}

func TestPercentileFilter_Idempotent(t *testing.T) {
	price := numeric(t, "pct_idempotent_price")
	f, err := filter.NewPercentileFilter(price, 10, 65)
	require.NoError(t, err)

	data := floats(t,
		[]float64{0.3, math.NaN(), 7.25, -1, 4},
		[]float64{2, 2, 2, 9, 1e-9},
	)
	mask := bools(t,
		[]bool{true, true, false, true, true},
		[]bool{true, true, true, true, true},
	)

	first := computeBool(t, f, []panel.Array{data}, mask)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, computeBool(t, f, []panel.Array{data}, mask))
	}
	assert.False(t, math.IsNaN(data.Values[0]), "inputs are not modified")
	assert.Equal(t, 7.25, data.Values[2], "masked input is not overwritten in place")
}

func TestPercentileFilter_ShapeMismatch(t *testing.T) {
	price := numeric(t, "pct_shape_price")
	f, err := filter.NewPercentileFilter(price, 10, 90)
	require.NoError(t, err)

	data := floats(t, []float64{1, 2, 3})
	_, err = f.ComputeFromArrays([]panel.Array{data}, panel.Full(panel.Shape{Rows: 1, Cols: 2}, true))
	require.Error(t, err)
	assert.True(t, term.IsShapeMismatch(err))

	_, err = f.ComputeFromArrays(nil, panel.Full(data.Shape(), true))
	require.Error(t, err)

	_, err = f.ComputeFromArrays([]panel.Array{data}, nil)
	require.Error(t, err)
	assert.True(t, term.IsShapeMismatch(err))
}
