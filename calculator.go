package gocalc

import (
	"log/slog"

	"github.com/njchilds90/gocalc/internal/logging"
)

// Calculator runs the numerical routines with a fixed set of Settings.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	settings Settings
	logger   *slog.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets the logger used for debug tracing of each operation.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Calculator using settings, which must pass Validate.
func New(settings Settings, opts ...Option) (*Calculator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	c := &Calculator{
		settings: settings,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Settings returns the settings the calculator was built with.
func (c *Calculator) Settings() Settings { return c.settings }

// Evaluate evaluates expr at x.
func (c *Calculator) Evaluate(expr *Expression, x float64) (float64, error) {
	v, err := Evaluate(expr, x)
	if err != nil {
		c.logger.Debug("evaluate failed", "expr", expr, "x", x, "error", err)
		return 0, err
	}
	return v, nil
}

var defaultCalculator, _ = New(DefaultSettings())

// DefaultCalculator returns the Calculator used by the package-level functions.
func DefaultCalculator() *Calculator { return defaultCalculator }

// Differentiate estimates the order-th derivative of expr at x with DefaultSettings.
func Differentiate(expr *Expression, x float64, order int) (float64, error) {
	return defaultCalculator.Differentiate(expr, x, order)
}

// Limit estimates the two-sided limit of expr at target with DefaultSettings.
func Limit(expr *Expression, target float64) (float64, error) {
	return defaultCalculator.Limit(expr, target)
}

// LimitLeft estimates the limit of expr as x approaches target from below.
func LimitLeft(expr *Expression, target float64) (float64, error) {
	return defaultCalculator.LimitLeft(expr, target)
}

// LimitRight estimates the limit of expr as x approaches target from above.
func LimitRight(expr *Expression, target float64) (float64, error) {
	return defaultCalculator.LimitRight(expr, target)
}

// TangentLine returns the tangent to expr at x with DefaultSettings.
func TangentLine(expr *Expression, x float64) (LinearFunction, error) {
	return defaultCalculator.TangentLine(expr, x)
}

// TaylorSeries expands expr around center with DefaultSettings.
func TaylorSeries(expr *Expression, center float64, terms int) (Polynomial, error) {
	return defaultCalculator.TaylorSeries(expr, center, terms)
}
