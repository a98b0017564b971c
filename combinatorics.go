package gocalc

import (
	"fmt"
	"math"
)

// ============================================================
// Combinatorics and linear systems
// ============================================================

// maxFactorial is the largest n whose factorial is a finite float64.
const maxFactorial = 170

// Factorial returns n! for 0 <= n <= 170.
func Factorial(n int) (float64, error) {
	if n < 0 || n > maxFactorial {
		return 0, fmt.Errorf("%w: factorial needs 0 <= n <= %d, got %d", ErrInvalidArgument, maxFactorial, n)
	}
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f, nil
}

// Combination returns the binomial coefficient n choose r.
func Combination(n, r int) (float64, error) {
	if n < 0 || r < 0 || r > n {
		return 0, fmt.Errorf("%w: combination needs 0 <= r <= n, got n=%d r=%d", ErrInvalidArgument, n, r)
	}
	if r > n-r {
		r = n - r
	}
	// Multiplicative form keeps intermediates small and exact for moderate n.
	c := 1.0
	for i := 1; i <= r; i++ {
		c = c * float64(n-r+i) / float64(i)
	}
	if !isFinite(c) {
		return 0, &DomainError{Op: "combination", Arg: float64(n), Overflow: true}
	}
	return math.Round(c), nil
}

// Round truncates x towards zero to places decimal digits. Negative places
// truncate to tens, hundreds and so on.
func Round(x float64, places int) float64 {
	if !isFinite(x) {
		return x
	}
	scale := math.Pow10(places)
	if scale == 0 || math.IsInf(scale, 0) {
		return x
	}
	// Beyond 2^53 there are no fractional digits left to drop.
	if v := x * scale; math.Abs(v) < 1<<53 {
		return math.Trunc(v) / scale
	}
	return x
}

// Intersect solves the system formed by f and g and returns the point where
// the two lines meet. Parallel or identical lines yield ErrNoSolution.
func (f LinearFunction) Intersect(g LinearFunction) (x, y float64, err error) {
	if f.Slope == g.Slope {
		return 0, 0, fmt.Errorf("%w: lines %s and %s are parallel", ErrNoSolution, f, g)
	}
	x = (g.Intercept - f.Intercept) / (f.Slope - g.Slope)
	return x, f.At(x), nil
}
