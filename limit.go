package gocalc

import (
	"errors"
	"fmt"
	"math"
)

// ============================================================
// Limits
// ============================================================

// Limit estimates the two-sided limit of expr as x approaches target.
//
// Both sides are sampled at target ± s·10^-k for k = 1..LimitSamples, where
// s = max(|target|, 1); target itself is never evaluated. A side converges when
// its last LimitWindow samples agree within Tolerance (relative to the last
// sample, absolute below one), or when its trailing differences keep one sign
// and shrink at least geometrically, in which case the Aitken extrapolation
// of the last samples is used. The limit exists when both sides converge and
// agree; the result is their mean.
//
// The offset never drops below 10^-LimitSamples, so a feature closer to the
// target than that, such as the pole of 1/x seen from 1e-12, is
// indistinguishable from the behaviour at the feature itself.
//
// A pole is not a limit: it fails with a *LimitError whose Reason is
// ReasonUnbounded and whose LeftSign/RightSign give the direction of
// divergence. A side whose samples overflow float64 after growing steadily
// counts as unbounded too.
func (c *Calculator) Limit(expr *Expression, target float64) (float64, error) {
	if err := checkLimitArgs(expr, target); err != nil {
		return 0, err
	}
	left, lerr := c.approach(expr, target, LeftSide)
	right, rerr := c.approach(expr, target, RightSide)

	if lerr != nil || rerr != nil {
		err := combineSides(target, lerr, rerr)
		c.logger.Debug("limit failed", "expr", expr, "target", target, "error", err)
		return 0, err
	}
	scale := math.Max(1, math.Max(math.Abs(left), math.Abs(right)))
	if math.Abs(left-right) > c.settings.Tolerance*scale {
		c.logger.Debug("limit sides differ", "expr", expr, "target", target, "left", left, "right", right)
		return 0, &LimitError{Target: target, Side: BothSides, Reason: ReasonMismatch}
	}
	v := (left + right) / 2
	c.logger.Debug("limit", "expr", expr, "target", target, "left", left, "right", right, "result", v)
	return v, nil
}

// LimitLeft estimates the limit of expr as x approaches target from below.
func (c *Calculator) LimitLeft(expr *Expression, target float64) (float64, error) {
	return c.oneSided(expr, target, LeftSide)
}

// LimitRight estimates the limit of expr as x approaches target from above.
func (c *Calculator) LimitRight(expr *Expression, target float64) (float64, error) {
	return c.oneSided(expr, target, RightSide)
}

func (c *Calculator) oneSided(expr *Expression, target float64, side Side) (float64, error) {
	if err := checkLimitArgs(expr, target); err != nil {
		return 0, err
	}
	v, err := c.approach(expr, target, side)
	if err != nil {
		c.logger.Debug("limit failed", "expr", expr, "target", target, "side", side, "error", err)
		return 0, err
	}
	c.logger.Debug("limit", "expr", expr, "target", target, "side", side, "result", v)
	return v, nil
}

func checkLimitArgs(expr *Expression, target float64) error {
	if expr == nil {
		return fmt.Errorf("%w: nil expression", ErrInvalidArgument)
	}
	if !isFinite(target) {
		return fmt.Errorf("%w: limit target must be finite, got %g", ErrInvalidArgument, target)
	}
	return nil
}

// approach evaluates the approach sequence on one side and returns its
// estimate, or a *LimitError describing why the side does not converge.
func (c *Calculator) approach(expr *Expression, target float64, side Side) (float64, error) {
	n, window := c.settings.LimitSamples, c.settings.LimitWindow
	scale := math.Max(math.Abs(target), 1)
	dir := 1.0
	if side == LeftSide {
		dir = -1
	}

	values := make([]float64, n)
	errs := make([]error, n)
	for k := 1; k <= n; k++ {
		x := target + dir*scale*math.Pow10(-k)
		values[k-1], errs[k-1] = expr.Eval(x)
	}

	// Samples far from the target may lie outside the domain; only the
	// trailing window has to be defined.
	for i := n - window; i < n; i++ {
		if errs[i] == nil {
			continue
		}
		if s := overflowDivergence(values, errs); s != 0 {
			return 0, unbounded(target, side, s)
		}
		return 0, &LimitError{Target: target, Side: side, Reason: ReasonUndefined, Err: errs[i]}
	}
	tail := values[n-window:]
	last := tail[window-1]
	tol := c.settings.Tolerance * math.Max(1, math.Abs(last))
	if settled(tail, tol) {
		return last, nil
	}
	if v, ok := extrapolate(values, errs, window); ok {
		return v, nil
	}

	if s := divergence(values, errs); s != 0 {
		return 0, unbounded(target, side, s)
	}
	return 0, &LimitError{Target: target, Side: side, Reason: ReasonOscillates}
}

func unbounded(target float64, side Side, sign int) *LimitError {
	lerr := &LimitError{Target: target, Side: side, Reason: ReasonUnbounded}
	if side == LeftSide {
		lerr.LeftSign = sign
	} else {
		lerr.RightSign = sign
	}
	return lerr
}

// settled reports whether consecutive samples all agree within tol.
func settled(tail []float64, tol float64) bool {
	for i := 1; i < len(tail); i++ {
		if math.Abs(tail[i]-tail[i-1]) > tol {
			return false
		}
	}
	return true
}

// extrapolate accepts a side whose trailing differences keep one sign and
// at least halve at every step, which is how a function that is merely steep
// near the target behaves on decade offsets. It looks two samples past the
// window and returns the Aitken extrapolation of the last three samples.
func extrapolate(values []float64, errs []error, window int) (float64, bool) {
	m := window + 2
	if m > len(values) {
		m = len(values)
	}
	if m < 4 {
		return 0, false
	}
	seq := values[len(values)-m:]
	for _, err := range errs[len(errs)-m:] {
		if err != nil {
			return 0, false
		}
	}
	prev := seq[1] - seq[0]
	for i := 2; i < m; i++ {
		d := seq[i] - seq[i-1]
		if d == 0 || prev == 0 || math.Signbit(d) != math.Signbit(prev) || math.Abs(d) > 0.5*math.Abs(prev) {
			return 0, false
		}
		prev = d
	}
	last := seq[m-1]
	d1, d2 := seq[m-2]-seq[m-3], last-seq[m-2]
	v := last - d2*d2/(d2-d1)
	if !isFinite(v) {
		return 0, false
	}
	return v, true
}

// growth reports +1 or -1 when run keeps one sign and grows strictly in
// magnitude, and 0 otherwise.
func growth(run []float64) int {
	sgn := math.Signbit(run[0])
	for i := 1; i < len(run); i++ {
		if math.Signbit(run[i]) != sgn || math.Abs(run[i]) <= math.Abs(run[i-1]) {
			return 0
		}
	}
	if sgn {
		return -1
	}
	return 1
}

// definedRun returns the start of the run of error-free samples ending just
// before end.
func definedRun(errs []error, end int) int {
	start := end
	for start > 0 && errs[start-1] == nil {
		start--
	}
	return start
}

// divergence reports the sign of a defined suffix of at least three samples
// that grows in magnitude towards the target, and 0 otherwise.
func divergence(values []float64, errs []error) int {
	start := definedRun(errs, len(values))
	if len(values)-start < 3 {
		return 0
	}
	return growth(values[start:])
}

// overflowDivergence handles samples that overflow float64 before reaching
// the target, such as exp(1/x) from the right. Every sample from the first
// overflow on must overflow, and the defined samples leading up to it must
// grow in magnitude; their sign is returned.
func overflowDivergence(values []float64, errs []error) int {
	first := len(errs)
	for first > 0 && isOverflow(errs[first-1]) {
		first--
	}
	if first == len(errs) {
		return 0
	}
	start := definedRun(errs, first)
	if first-start < 2 {
		return 0
	}
	return growth(values[start:first])
}

func isOverflow(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Overflow
}

// combineSides merges the per-side failures of a two-sided limit.
func combineSides(target float64, lerr, rerr error) error {
	l, lok := lerr.(*LimitError)
	r, rok := rerr.(*LimitError)
	switch {
	case lok && rok && l.Reason == ReasonUnbounded && r.Reason == ReasonUnbounded:
		return &LimitError{
			Target:    target,
			Side:      BothSides,
			Reason:    ReasonUnbounded,
			LeftSign:  l.LeftSign,
			RightSign: r.RightSign,
		}
	case lerr != nil:
		return lerr
	}
	return rerr
}
