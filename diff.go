package gocalc

import (
	"fmt"
	"math"
)

// ============================================================
// Numerical differentiation
// ============================================================

// Differentiate estimates the order-th derivative of expr at x by central
// differences. Orders above one apply the same formula to the lower-order
// estimate, so the stencil widens to 2^order evaluations and the error grows
// with the order. Any domain error met on the stencil is returned unchanged.
func (c *Calculator) Differentiate(expr *Expression, x float64, order int) (float64, error) {
	if expr == nil {
		return 0, fmt.Errorf("%w: nil expression", ErrInvalidArgument)
	}
	if order < 1 || order > c.settings.MaxOrder {
		return 0, fmt.Errorf("%w: derivative order must be in [1, %d], got %d", ErrInvalidArgument, c.settings.MaxOrder, order)
	}
	if !isFinite(x) {
		return 0, fmt.Errorf("%w: x must be finite, got %g", ErrInvalidArgument, x)
	}
	h := c.step(x, order)
	d, err := centralDifference(expr, x, order, h)
	if err != nil {
		c.logger.Debug("differentiate failed", "expr", expr, "x", x, "order", order, "h", h, "error", err)
		return 0, err
	}
	if !isFinite(d) {
		return 0, &DomainError{Op: fmt.Sprintf("derivative of order %d", order), Arg: x, Overflow: true}
	}
	c.logger.Debug("differentiate", "expr", expr, "x", x, "order", order, "h", h, "result", d)
	return d, nil
}

// step scales the relative step for order by |x|, with a floor of one so the
// step stays usable near zero.
func (c *Calculator) step(x float64, order int) float64 {
	return c.settings.StepFor(order) * math.Max(math.Abs(x), 1)
}

func centralDifference(expr *Expression, x float64, order int, h float64) (float64, error) {
	if order == 0 {
		return expr.Eval(x)
	}
	fwd, err := centralDifference(expr, x+h, order-1, h)
	if err != nil {
		return 0, err
	}
	back, err := centralDifference(expr, x-h, order-1, h)
	if err != nil {
		return 0, err
	}
	return (fwd - back) / (2 * h), nil
}
