package numexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodNameForOp(t *testing.T) {
	tests := []struct {
		op      Op
		commute bool
		want    string
	}{
		{And, false, "And"},
		{And, true, "RAnd"},
		{Or, false, "Or"},
		{Or, true, "ROr"},
		{Sub, true, "RSub"},
		{Lt, false, "Lt"},
		{Lt, true, "Gt"},
		{Ge, true, "Le"},
		{Eq, true, "Eq"},
	}
	for _, tt := range tests {
		got, err := MethodNameForOp(tt.op, tt.commute)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "op %s commute %v", tt.op, tt.commute)
	}

	_, err := MethodNameForOp(Op("^"), false)
	require.Error(t, err)
}

func TestBinaryOperator_Commuted(t *testing.T) {
	and := BinaryOperator{Op: And}
	assert.Equal(t, BinaryOperator{Op: And, Reflected: true}, and.Commuted())
	assert.Equal(t, and, and.Commuted().Commuted())

	lt := BinaryOperator{Op: Lt}
	assert.Equal(t, BinaryOperator{Op: Gt}, lt.Commuted())
}

func TestBinaryOperator_Format(t *testing.T) {
	assert.Equal(t, "(a) - (b)", BinaryOperator{Op: Sub}.Format("a", "b"))
	assert.Equal(t, "(b) - (a)", BinaryOperator{Op: Sub, Reflected: true}.Format("a", "b"))
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp("**")
	require.NoError(t, err)
	assert.Equal(t, Pow, op)
	assert.True(t, op.IsArith())
	assert.False(t, op.IsComparison())

	op, err = ParseOp("&")
	require.NoError(t, err)
	assert.True(t, op.IsFilterBinop())

	_, err = ParseOp("and")
	require.Error(t, err)
}

func TestFilterBinops(t *testing.T) {
	assert.Equal(t, []Op{And, Or}, FilterBinops)
}
