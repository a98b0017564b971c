package gocalc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gocalc"
)

// ============================================================
// JSON Serialization
// ============================================================

func decodeTree(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestToJSON_Shape(t *testing.T) {
	s, err := gocalc.ToJSON(gocalc.MustParse("2*sin(x) - pi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "binary", "op": "-",
		"left": {
			"type": "binary", "op": "*",
			"left": {"type": "num", "value": 2},
			"right": {"type": "func", "name": "sin", "arg": {"type": "var", "name": "x"}}
		},
		"right": {"type": "const", "name": "pi"}
	}`, s)

	_, err = gocalc.ToJSON(nil)
	assert.ErrorIs(t, err, gocalc.ErrInvalidArgument)
}

func TestJSON_RoundTrip(t *testing.T) {
	sources := []string{
		"x^2 - 4x + 4",
		"-(x + 1)/sqrt(abs(x) + e)",
		"2^-x * ln(x)",
		"1.5e-3 * x",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			e := gocalc.MustParse(src)
			s, err := gocalc.ToJSON(e)
			require.NoError(t, err)

			back, err := gocalc.FromJSON(decodeTree(t, s), "x")
			require.NoError(t, err)
			assert.Equal(t, e.String(), back.String())
			assert.Equal(t, e.String(), back.Source())

			for _, x := range []float64{0.5, 2} {
				want, werr := e.Eval(x)
				got, gerr := back.Eval(x)
				assert.Equal(t, werr == nil, gerr == nil)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestFromJSON_NegativeNumber(t *testing.T) {
	tree := decodeTree(t, `{
		"type": "binary", "op": "-",
		"left": {"type": "var", "name": "x"},
		"right": {"type": "num", "value": -2}
	}`)
	e, err := gocalc.FromJSON(tree, "x")
	require.NoError(t, err)
	assert.Equal(t, "x - -2", e.String())

	v, err := e.Eval(1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	reparsed, err := gocalc.Parse(e.String())
	require.NoError(t, err)
	want, err := gocalc.ToJSON(reparsed)
	require.NoError(t, err)
	got, err := gocalc.ToJSON(e)
	require.NoError(t, err)
	assert.JSONEq(t, want, got)
}

func TestFromJSON_OtherVariable(t *testing.T) {
	e, err := gocalc.ParseVar("t^2", "t")
	require.NoError(t, err)
	s, err := gocalc.ToJSON(e)
	require.NoError(t, err)

	back, err := gocalc.FromJSON(decodeTree(t, s), "t")
	require.NoError(t, err)
	assert.Equal(t, "t", back.Variable())

	_, err = gocalc.FromJSON(decodeTree(t, s), "")
	assert.ErrorIs(t, err, gocalc.ErrParse)
}

func TestFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing type", `{"value": 1}`},
		{"unknown type", `{"type": "matrix"}`},
		{"num without value", `{"type": "num"}`},
		{"unknown constant", `{"type": "const", "name": "tau"}`},
		{"foreign variable", `{"type": "var", "name": "y"}`},
		{"unknown operator", `{"type": "binary", "op": "%", "left": {"type": "num", "value": 1}, "right": {"type": "num", "value": 2}}`},
		{"missing operand", `{"type": "binary", "op": "+", "left": {"type": "num", "value": 1}}`},
		{"unknown function", `{"type": "func", "name": "sec", "arg": {"type": "var", "name": "x"}}`},
		{"operand not object", `{"type": "neg", "arg": 3}`},
		{"nested error", `{"type": "neg", "arg": {"type": "func", "name": "sin", "arg": {"type": "bogus"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gocalc.FromJSON(decodeTree(t, tt.json), "x")
			assert.ErrorIs(t, err, gocalc.ErrParse)
		})
	}

	_, err := gocalc.FromJSON(nil, "x")
	assert.ErrorIs(t, err, gocalc.ErrParse)
	_, err = gocalc.FromJSON(decodeTree(t, `{"type": "var", "name": "x"}`), "sin")
	assert.ErrorIs(t, err, gocalc.ErrInvalidArgument)
}

func TestDecodeExpression(t *testing.T) {
	e, err := gocalc.DecodeExpression("x + 1", "")
	require.NoError(t, err)
	assert.Equal(t, "x + 1", e.String())

	e, err = gocalc.DecodeExpression(decodeTree(t, `{"type": "var", "name": "x"}`), "")
	require.NoError(t, err)
	assert.Equal(t, "x", e.String())

	_, err = gocalc.DecodeExpression(42.0, "")
	assert.ErrorIs(t, err, gocalc.ErrInvalidArgument)
}
