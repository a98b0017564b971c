package gocalc

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by this package matches one of these
// through errors.Is; the typed errors below carry the details.
var (
	ErrParse            = errors.New("gocalc: parse error")
	ErrDomain           = errors.New("gocalc: domain error")
	ErrLimit            = errors.New("gocalc: limit does not exist")
	ErrInvalidArgument  = errors.New("gocalc: invalid argument")
	ErrInvalidSettings  = errors.New("gocalc: invalid settings")
	ErrNoSolution       = errors.New("gocalc: no unique solution")
	ErrUnknownOperation = errors.New("gocalc: unknown operation")
)

// ParseError reports malformed expression text. Pos is a byte offset into Source.
type ParseError struct {
	Source string
	Pos    int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gocalc: parse error at offset %d in %q: %s", e.Pos, e.Source, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// DomainError reports an evaluation outside the domain of Op. Arg is the
// offending operand: the function argument for calls, the dividend for a
// division by zero, the exponent for a negative power of zero.
// Overflow is set when the operand was valid but the result left the
// float64 range.
type DomainError struct {
	Op       string
	Arg      float64
	Overflow bool
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("gocalc: domain error: %s (argument %g)", e.Op, e.Arg)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// Side selects which approach sequence a limit uses.
type Side int

const (
	BothSides Side = iota
	LeftSide
	RightSide
)

func (s Side) String() string {
	switch s {
	case LeftSide:
		return "left"
	case RightSide:
		return "right"
	default:
		return "both"
	}
}

// ParseSide accepts "both", "left" or "right" (also "-" and "+").
func ParseSide(s string) (Side, error) {
	switch s {
	case "", "both":
		return BothSides, nil
	case "left", "-":
		return LeftSide, nil
	case "right", "+":
		return RightSide, nil
	}
	return BothSides, fmt.Errorf("%w: unknown side %q", ErrInvalidArgument, s)
}

// Reason classifies why a limit could not be established.
type Reason int

const (
	ReasonOscillates Reason = iota
	ReasonUnbounded
	ReasonMismatch
	ReasonUndefined
)

func (r Reason) String() string {
	switch r {
	case ReasonUnbounded:
		return "unbounded"
	case ReasonMismatch:
		return "one-sided limits differ"
	case ReasonUndefined:
		return "undefined near target"
	default:
		return "does not converge"
	}
}

// LimitError reports a non-convergent approach sequence.
//
// For ReasonUnbounded, LeftSign and RightSign hold the sign of divergence
// (+1 or -1) on each side that diverged, and 0 elsewhere.
type LimitError struct {
	Target    float64
	Side      Side
	Reason    Reason
	LeftSign  int
	RightSign int
	Err       error
}

func (e *LimitError) Error() string {
	msg := fmt.Sprintf("gocalc: limit at %g (%s): %s", e.Target, e.Side, e.Reason)
	if e.Reason == ReasonUnbounded {
		msg += fmt.Sprintf(" (%s)", e.divergence())
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LimitError) divergence() string {
	sign := func(s int) string {
		switch {
		case s > 0:
			return "+Inf"
		case s < 0:
			return "-Inf"
		}
		return "finite"
	}
	switch e.Side {
	case LeftSide:
		return "left " + sign(e.LeftSign)
	case RightSide:
		return "right " + sign(e.RightSign)
	}
	return "left " + sign(e.LeftSign) + ", right " + sign(e.RightSign)
}

func (e *LimitError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLimit, e.Err}
	}
	return []error{ErrLimit}
}

// ErrorKind maps err to the short failure kind reported by the registry.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLimit):
		return KindLimit
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrDomain):
		return KindDomain
	case errors.Is(err, ErrUnknownOperation):
		return KindUnknownOperation
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrNoSolution), errors.Is(err, ErrInvalidSettings):
		return KindInvalidArgument
	}
	return KindInternal
}

// Failure kinds.
const (
	KindParse            = "parse"
	KindDomain           = "domain"
	KindLimit            = "limit"
	KindInvalidArgument  = "invalid_argument"
	KindUnknownOperation = "unknown_operation"
	KindInternal         = "internal"
)
