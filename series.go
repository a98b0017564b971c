package gocalc

import (
	"fmt"
	"math"
	"strings"
)

// ============================================================
// LinearFunction
// ============================================================

// LinearFunction is y = Slope*x + Intercept.
type LinearFunction struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line at x.
func (f LinearFunction) At(x float64) float64 { return f.Slope*x + f.Intercept }

// String renders the line as "y = <slope>x + <intercept>", writing a negative
// intercept as a subtraction.
func (f LinearFunction) String() string {
	if f.Intercept < 0 {
		return fmt.Sprintf("y = %sx - %s", formatFloat(f.Slope), formatFloat(-f.Intercept))
	}
	return fmt.Sprintf("y = %sx + %s", formatFloat(f.Slope), formatFloat(f.Intercept))
}

// TangentLine returns the tangent to expr at x: its slope is the first
// derivative at x and it passes through (x, expr(x)).
func (c *Calculator) TangentLine(expr *Expression, x float64) (LinearFunction, error) {
	slope, err := c.Differentiate(expr, x, 1)
	if err != nil {
		return LinearFunction{}, err
	}
	y, err := c.Evaluate(expr, x)
	if err != nil {
		return LinearFunction{}, err
	}
	lf := LinearFunction{Slope: slope, Intercept: y - slope*x}
	c.logger.Debug("tangent line", "expr", expr, "x", x, "line", lf.String())
	return lf, nil
}

// ============================================================
// Polynomial: Taylor expansion
// ============================================================

// Polynomial is sum(Coefficients[k] * (x - Center)^k).
type Polynomial struct {
	Center       float64   `json:"center"`
	Coefficients []float64 `json:"coefficients"`
}

// Degree is the index of the last coefficient.
func (p Polynomial) Degree() int { return len(p.Coefficients) - 1 }

// At evaluates the polynomial at x using Horner's scheme.
func (p Polynomial) At(x float64) float64 {
	d := x - p.Center
	v := 0.0
	for k := len(p.Coefficients) - 1; k >= 0; k-- {
		v = v*d + p.Coefficients[k]
	}
	return v
}

// String renders the non-zero terms in increasing power, e.g.
// "x - 0.16666666666666666*x^3" or "1 + 2*(x - 1)".
func (p Polynomial) String() string {
	return p.format("x")
}

func (p Polynomial) format(variable string) string {
	base := variable
	switch {
	case p.Center > 0:
		base = "(" + variable + " - " + formatFloat(p.Center) + ")"
	case p.Center < 0:
		base = "(" + variable + " + " + formatFloat(-p.Center) + ")"
	}

	var b strings.Builder
	for k, c := range p.Coefficients {
		if c == 0 {
			continue
		}
		mag := math.Abs(c)
		switch {
		case b.Len() == 0 && c < 0:
			b.WriteString("-")
		case b.Len() > 0 && c < 0:
			b.WriteString(" - ")
		case b.Len() > 0:
			b.WriteString(" + ")
		}
		switch {
		case k == 0:
			b.WriteString(formatFloat(mag))
			continue
		case mag != 1:
			b.WriteString(formatFloat(mag) + "*")
		}
		b.WriteString(base)
		if k > 1 {
			fmt.Fprintf(&b, "^%d", k)
		}
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

// TaylorSeries expands expr around center to terms coefficients, where
// coefficient k is the k-th derivative at center divided by k!.
//
// High-order coefficients inherit the growing error of the numerical
// derivatives and are divided by a fast-growing factorial, so they carry
// few significant digits. Any failure is returned as is; the series is
// never shortened to hide it.
func (c *Calculator) TaylorSeries(expr *Expression, center float64, terms int) (Polynomial, error) {
	if terms < 1 || terms > c.settings.MaxOrder+1 {
		return Polynomial{}, fmt.Errorf("%w: term count must be in [1, %d], got %d", ErrInvalidArgument, c.settings.MaxOrder+1, terms)
	}
	coeffs := make([]float64, terms)
	v, err := c.Evaluate(expr, center)
	if err != nil {
		return Polynomial{}, err
	}
	coeffs[0] = v
	for k := 1; k < terms; k++ {
		d, err := c.Differentiate(expr, center, k)
		if err != nil {
			return Polynomial{}, err
		}
		fact, err := Factorial(k)
		if err != nil {
			return Polynomial{}, err
		}
		coeffs[k] = d / fact
	}
	p := Polynomial{Center: center, Coefficients: coeffs}
	c.logger.Debug("taylor series", "expr", expr, "center", center, "terms", terms, "polynomial", p.String())
	return p, nil
}
