package gocalc

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds the numeric constants used by the calculus routines.
type Settings struct {
	// Step is the relative central-difference step for first derivatives.
	// Higher orders derive their own step from it, see StepFor.
	Step float64 `yaml:"step"`
	// MaxOrder caps the derivative order. An order-n derivative costs 2^n evaluations.
	MaxOrder int `yaml:"max_order"`
	// LimitSamples is the number of approach points per side: offsets 10^-1 .. 10^-LimitSamples.
	LimitSamples int `yaml:"limit_samples"`
	// LimitWindow is how many trailing samples must agree for a side to converge.
	LimitWindow int `yaml:"limit_window"`
	// Tolerance is the relative agreement required between limit samples.
	Tolerance float64 `yaml:"tolerance"`
	// TaylorTerms is the term count used when a caller does not give one.
	TaylorTerms int `yaml:"taylor_terms"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Step:         1e-5,
		MaxOrder:     10,
		LimitSamples: 10,
		LimitWindow:  3,
		Tolerance:    1e-4,
		TaylorTerms:  5,
	}
}

// Validate reports the first out-of-range field.
func (s Settings) Validate() error {
	switch {
	case !(s.Step > 0 && s.Step < 1):
		return fmt.Errorf("%w: step must be in (0, 1), got %g", ErrInvalidSettings, s.Step)
	case s.MaxOrder < 1 || s.MaxOrder > 20:
		return fmt.Errorf("%w: max_order must be in [1, 20], got %d", ErrInvalidSettings, s.MaxOrder)
	case s.LimitSamples < 2 || s.LimitSamples > 15:
		return fmt.Errorf("%w: limit_samples must be in [2, 15], got %d", ErrInvalidSettings, s.LimitSamples)
	case s.LimitWindow < 2 || s.LimitWindow > s.LimitSamples:
		return fmt.Errorf("%w: limit_window must be in [2, limit_samples], got %d", ErrInvalidSettings, s.LimitWindow)
	case !(s.Tolerance > 0 && s.Tolerance < 1):
		return fmt.Errorf("%w: tolerance must be in (0, 1), got %g", ErrInvalidSettings, s.Tolerance)
	case s.TaylorTerms < 1 || s.TaylorTerms > s.MaxOrder+1:
		return fmt.Errorf("%w: taylor_terms must be in [1, max_order+1], got %d", ErrInvalidSettings, s.TaylorTerms)
	}
	return nil
}

// StepFor returns the relative step used for an order-n derivative.
// Order 1 uses Step itself; order n uses Step^(3/(n+2)), which keeps the
// truncation and cancellation error of the n-fold stencil of similar size.
func (s Settings) StepFor(order int) float64 {
	if order <= 1 {
		return s.Step
	}
	return math.Pow(s.Step, 3/float64(order+2))
}

// LoadSettings reads a YAML file on top of DefaultSettings and validates the result.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes YAML on top of DefaultSettings and validates the result.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
