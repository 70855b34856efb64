package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/filter"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
	"github.com/roach88/sieve/internal/testutil"
)

func TestNewSequencedFilter_Inputs(t *testing.T) {
	first := column(t, "seq_inputs_first")
	a := column(t, "seq_inputs_a")
	b := column(t, "seq_inputs_b")

	then, err := filter.And(a, b)
	require.NoError(t, err)

	s, err := filter.Then(first, then)
	require.NoError(t, err)

	assert.Equal(t, []string{first.ID(), a.ID(), b.ID()}, inputIDs(s.Inputs()))
	assert.Equal(t, 0, s.WindowLength())
	assert.Equal(t, panel.Bool, s.DType())
	assert.Same(t, then, s.Next())
	assert.Equal(t, first.ID(), s.First().ID())
}

func TestNewSequencedFilter_NoDeduplication(t *testing.T) {
	a := column(t, "seq_dup_a")
	b := column(t, "seq_dup_b")

	then, err := filter.And(a, b)
	require.NoError(t, err)

	// a is both the first filter and one of then's inputs; it appears twice.
	s, err := filter.Then(a, then)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID(), a.ID(), b.ID()}, inputIDs(s.Inputs()))
}

func TestNewSequencedFilter_Identity(t *testing.T) {
	first := column(t, "seq_identity_first")
	a := column(t, "seq_identity_a")
	b := column(t, "seq_identity_b")

	na, err := filter.Not(a)
	require.NoError(t, err)
	nb, err := filter.Not(b)
	require.NoError(t, err)

	s1, err := filter.Then(first, na)
	require.NoError(t, err)
	s2, err := filter.Then(first, na)
	require.NoError(t, err)
	s3, err := filter.Then(first, nb)
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.NotEqual(t, s1.ID(), s3.ID())
}

func TestNewSequencedFilter_ExpectedFilter(t *testing.T) {
	flag := column(t, "seq_expected_flag")
	price := numeric(t, "seq_expected_price")
	rank, err := filter.NewPercentileFilter(price, 10, 90)
	require.NoError(t, err)

	_, err = filter.NewSequencedFilter(price, rank)
	require.Error(t, err)
	assert.True(t, term.IsExpectedFilter(err))
	assert.Contains(t, err.Error(), "expected Filter, got Column")

	_, err = filter.NewSequencedFilter(flag, price)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Filter, got Column")

	_, err = filter.NewSequencedFilter(flag, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Filter, got <nil>")
}

func TestNewSequencedFilter_ThenMustBeComputed(t *testing.T) {
	first := column(t, "seq_loaded_first")
	other := column(t, "seq_loaded_other")

	_, err := filter.Then(first, other)
	require.Error(t, err)
	assert.Equal(t, term.ErrCodeNotComputable, term.Code(err))
}

func TestSequencedFilter_NarrowsMask(t *testing.T) {
	first := column(t, "seq_narrow_first")
	then, err := testutil.NewTestingFilter("seq_narrow_then", nil, nil)
	require.NoError(t, err)

	s, err := filter.Then(first, then)
	require.NoError(t, err)

	firstResult := bools(t, []bool{true, false, true})
	mask := panel.Full(firstResult.Shape(), true)

	got := computeBool(t, s, []panel.Array{firstResult}, mask)
	assert.Equal(t, []bool{true, false, true}, got)
	assert.Equal(t, []bool{true, false, true}, then.LastMask().Values)
}

func TestSequencedFilter_MaskLaw(t *testing.T) {
	first := column(t, "seq_law_first")
	input := column(t, "seq_law_input")

	// then ignores its mask and reports every entity as passing; the mask it
	// receives is what the law constrains.
	then, err := testutil.NewTestingFilter("seq_law_then", []term.Term{input},
		func(arrays []panel.Array, mask *panel.BoolArray) (*panel.BoolArray, error) {
			return panel.Full(mask.Shape(), true), nil
		})
	require.NoError(t, err)

	s, err := filter.Then(first, then)
	require.NoError(t, err)

	firstResult := bools(t,
		[]bool{true, true, false, false},
		[]bool{false, true, true, false},
	)
	mask := bools(t,
		[]bool{true, false, true, false},
		[]bool{true, true, true, true},
	)
	inputData := bools(t,
		[]bool{true, true, true, true},
		[]bool{true, true, true, true},
	)

	_, err = s.ComputeFromArrays([]panel.Array{firstResult, inputData}, mask)
	require.NoError(t, err)

	want, err := mask.And(firstResult)
	require.NoError(t, err)
	assert.True(t, want.Equal(then.LastMask()), "then sees mask AND first")
}

func TestSequencedFilter_ThenRespectsNarrowedMask(t *testing.T) {
	first := column(t, "seq_scenario_first")
	a := column(t, "seq_scenario_a")
	b := column(t, "seq_scenario_b")

	// g = a | b is true everywhere in the raw data, but it is a
	// NumExprFilter, so it ANDs with the mask it is handed.
	g, err := filter.Or(a, b)
	require.NoError(t, err)
	s, err := filter.Then(first, g)
	require.NoError(t, err)

	f := bools(t, []bool{true, false, true})
	got := computeBool(t, s, []panel.Array{
		f,
		bools(t, []bool{true, true, true}),
		bools(t, []bool{false, true, false}),
	}, panel.Full(f.Shape(), true))

	assert.Equal(t, []bool{true, false, true}, got)
}

func TestSequencedFilter_ArrayCount(t *testing.T) {
	first := column(t, "seq_count_first")
	a := column(t, "seq_count_a")
	na, err := filter.Not(a)
	require.NoError(t, err)
	s, err := filter.Then(first, na)
	require.NoError(t, err)

	x := bools(t, []bool{true})
	_, err = s.ComputeFromArrays([]panel.Array{x}, panel.Full(x.Shape(), true))
	require.Error(t, err)
	assert.True(t, term.IsShapeMismatch(err))
}

func TestSequencedFilter_NilMask(t *testing.T) {
	first := column(t, "seq_nil_first")
	then, err := testutil.NewTestingFilter("seq_nil_then", nil, nil)
	require.NoError(t, err)

	s, err := filter.Then(first, then)
	require.NoError(t, err)

	_, err = s.ComputeFromArrays([]panel.Array{bools(t, []bool{true})}, nil)
	require.Error(t, err)
	assert.True(t, term.IsShapeMismatch(err))
	assert.Nil(t, then.LastMask(), "then is not computed")
}
