package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", "", `""`},
		{"int", Int(42), "42"},
		{"negative int", -100, "-100"},
		{"min int64", Int(math.MinInt64), "-9223372036854775808"},
		{"bool", true, "true"},
		{"float integral", 20.0, `"20"`},
		{"float fraction", Float(0.1), `"0.1"`},
		{"empty list", List{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"strings", []string{"a", "b"}, `["a","b"]`},
		{"mixed list", []any{1, "x", false}, `[1,"x",false]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	out, err := MarshalCanonical(Object{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Object{"b": Int(1), "a": Int(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(out))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as the surrogate 0xD83D, which sorts before 0xFB01.
	// Byte-wise UTF-8 order would put U+FB01 first.
	out, err := MarshalCanonical(Object{
		"\uFB01":     Int(1),
		"\U0001F600": Int(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFB01\":1}", string(out))
}

func TestMarshalCanonical_Escaping(t *testing.T) {
	out, err := MarshalCanonical("a<b>&\"\\\n\x01 ")
	require.NoError(t, err)
	assert.Equal(t, "\"a<b>&\\\"\\\\\\n\\u0001 \"", string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"nil in list", List{Int(1), nil}},
		{"unsupported", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
		})
	}
}
