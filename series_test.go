package gocalc_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gocalc"
)

// ============================================================
// Tangent lines
// ============================================================

func TestTangentLine_Square(t *testing.T) {
	e := gocalc.MustParse("x^2")
	lf, err := gocalc.TangentLine(e, 3)
	require.NoError(t, err)
	assert.InDelta(t, 6, lf.Slope, 1e-6)
	assert.InDelta(t, -9, lf.Intercept, 1e-6)

	y, err := gocalc.Evaluate(e, 3)
	require.NoError(t, err)
	assert.InDelta(t, y, lf.At(3), 1e-9)
}

func TestTangentLine_PropagatesErrors(t *testing.T) {
	_, err := gocalc.TangentLine(gocalc.MustParse("sqrt(x)"), 0)
	assert.ErrorIs(t, err, gocalc.ErrDomain)
	_, err = gocalc.TangentLine(nil, 0)
	assert.ErrorIs(t, err, gocalc.ErrInvalidArgument)
}

func TestLinearFunction_String(t *testing.T) {
	assert.Equal(t, "y = 6x - 9", gocalc.LinearFunction{Slope: 6, Intercept: -9}.String())
	assert.Equal(t, "y = 2x + 1", gocalc.LinearFunction{Slope: 2, Intercept: 1}.String())
	assert.Equal(t, "y = -0.5x + 0", gocalc.LinearFunction{Slope: -0.5}.String())
}

func TestLinearFunction_Intersect(t *testing.T) {
	f := gocalc.LinearFunction{Slope: 2, Intercept: 0}
	g := gocalc.LinearFunction{Slope: -1, Intercept: 3}
	x, y, err := f.Intersect(g)
	require.NoError(t, err)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 2.0, y)

	// A horizontal first line leaves no leading pivot in [-m1 1; -m2 1].
	h := gocalc.LinearFunction{Slope: 0, Intercept: 2}
	x, y, err = h.Intersect(gocalc.LinearFunction{Slope: 1, Intercept: 0})
	require.NoError(t, err)
	assert.Equal(t, 2.0, x)
	assert.Equal(t, 2.0, y)

	_, _, err = f.Intersect(gocalc.LinearFunction{Slope: 2, Intercept: 5})
	assert.ErrorIs(t, err, gocalc.ErrNoSolution)
	_, _, err = f.Intersect(f)
	assert.ErrorIs(t, err, gocalc.ErrNoSolution)
}

// ============================================================
// Taylor series
// ============================================================

func TestTaylorSeries_Sin(t *testing.T) {
	p, err := gocalc.TaylorSeries(gocalc.MustParse("sin(x)"), 0, 4)
	require.NoError(t, err)
	require.Len(t, p.Coefficients, 4)
	assert.Equal(t, 3, p.Degree())
	want := []float64{0, 1, 0, -1.0 / 6}
	for k := range want {
		assert.InDelta(t, want[k], p.Coefficients[k], 1e-4, "coefficient %d", k)
	}
}

func TestTaylorSeries_ApproximatesNearCenter(t *testing.T) {
	e := gocalc.MustParse("exp(x)")
	p, err := gocalc.TaylorSeries(e, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Center)
	assert.InDelta(t, math.Exp(1.1), p.At(1.1), 1e-5)
}

func TestTaylorSeries_InvalidTerms(t *testing.T) {
	e := gocalc.MustParse("x")
	for _, terms := range []int{0, -3, 12} {
		_, err := gocalc.TaylorSeries(e, 0, terms)
		assert.ErrorIs(t, err, gocalc.ErrInvalidArgument, "terms %d", terms)
	}
}

func TestTaylorSeries_PropagatesErrors(t *testing.T) {
	_, err := gocalc.TaylorSeries(gocalc.MustParse("ln(x)"), 0, 3)
	assert.ErrorIs(t, err, gocalc.ErrDomain)

	_, err = gocalc.TaylorSeries(gocalc.MustParse("sqrt(x)"), 0, 3)
	assert.ErrorIs(t, err, gocalc.ErrDomain)
}

func TestPolynomial_String(t *testing.T) {
	tests := []struct {
		p    gocalc.Polynomial
		want string
	}{
		{gocalc.Polynomial{Coefficients: []float64{0, 1, 0, -0.5}}, "x - 0.5*x^3"},
		{gocalc.Polynomial{Center: 1, Coefficients: []float64{1, 2}}, "1 + 2*(x - 1)"},
		{gocalc.Polynomial{Center: -2, Coefficients: []float64{0, 0, 3}}, "3*(x + 2)^2"},
		{gocalc.Polynomial{Coefficients: []float64{-1, -1}}, "-1 - x"},
		{gocalc.Polynomial{Coefficients: []float64{0, 0}}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.String())
		})
	}
}

func TestPolynomial_At(t *testing.T) {
	p := gocalc.Polynomial{Center: 1, Coefficients: []float64{1, 2, 3}}
	assert.Equal(t, 1.0+2*2+3*4, p.At(3))
	assert.Equal(t, 1.0, p.At(1))
}

// ============================================================
// Combinatorics
// ============================================================

func TestFactorial(t *testing.T) {
	for n, want := range map[int]float64{0: 1, 1: 1, 5: 120, 10: 3628800} {
		got, err := gocalc.Factorial(n)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	f, err := gocalc.Factorial(170)
	require.NoError(t, err)
	assert.False(t, math.IsInf(f, 0))

	for _, n := range []int{-1, 171} {
		_, err := gocalc.Factorial(n)
		assert.ErrorIs(t, err, gocalc.ErrInvalidArgument)
	}
}

func TestCombination(t *testing.T) {
	tests := []struct {
		n, r int
		want float64
	}{
		{5, 2, 10},
		{5, 0, 1},
		{5, 5, 1},
		{52, 5, 2598960},
		{60, 30, 118264581564861424},
	}
	for _, tt := range tests {
		got, err := gocalc.Combination(tt.n, tt.r)
		require.NoError(t, err)
		assert.InEpsilon(t, tt.want, got, 1e-12, "C(%d, %d)", tt.n, tt.r)
	}
	for _, c := range [][2]int{{5, 6}, {-1, 0}, {3, -1}} {
		_, err := gocalc.Combination(c[0], c[1])
		assert.ErrorIs(t, err, gocalc.ErrInvalidArgument)
	}
}

func TestRound_Truncates(t *testing.T) {
	assert.Equal(t, 3.14, gocalc.Round(3.14159, 2))
	assert.Equal(t, 2.0, gocalc.Round(2.999, 0))
	assert.Equal(t, -2.5, gocalc.Round(-2.5678, 1))
	assert.Equal(t, 1200.0, gocalc.Round(1234, -2))
	assert.Equal(t, 1e300, gocalc.Round(1e300, 5))
	assert.True(t, math.IsNaN(gocalc.Round(math.NaN(), 2)))
}
