// Package gocalc parses single-variable real expressions and runs numerical
// calculus on them: evaluation, differentiation, limits, tangent lines and
// Taylor series.
//
// Design goals:
//   - Parse once, evaluate many times; an Expression is immutable and safe
//     for concurrent use
//   - Every failure is explicit: ErrParse, ErrDomain and ErrLimit instead of
//     NaN or Inf leaking to the caller
//   - Fixed numeric strategy per operation, tunable through Settings
//   - Every operation is also reachable by name through a Registry, which is
//     what the gocalc command line drives
package gocalc

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ============================================================
// Node: expression tree
// ============================================================

// Node is one element of a parsed expression tree.
type Node interface {
	String() string
	LaTeX() string
	eval(x float64) (float64, error)
	precedence() int
	toJSON() map[string]interface{}
}

const (
	precAdd = iota + 1
	precMul
	precUnary
	precPow
	precAtom
)

// ============================================================
// Constant
// ============================================================

// Constant is a numeric literal or a named constant such as pi.
type Constant struct {
	value float64
	name  string
}

func (c *Constant) Value() float64 { return c.value }
func (c *Constant) Name() string   { return c.name }

func (c *Constant) eval(float64) (float64, error) { return c.value, nil }

func (c *Constant) precedence() int {
	if c.name == "" && c.value < 0 {
		return precUnary
	}
	return precAtom
}

func (c *Constant) String() string {
	if c.name != "" {
		return c.name
	}
	return formatFloat(c.value)
}

func (c *Constant) LaTeX() string {
	switch c.name {
	case "pi":
		return "\\pi"
	case "e":
		return "e"
	}
	return formatFloat(c.value)
}

func (c *Constant) toJSON() map[string]interface{} {
	if c.name != "" {
		return map[string]interface{}{"type": "const", "name": c.name}
	}
	return map[string]interface{}{"type": "num", "value": c.value}
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// ============================================================
// Variable
// ============================================================

// Variable is the single free variable of an expression.
type Variable struct{ name string }

func (v *Variable) Name() string                    { return v.name }
func (v *Variable) eval(x float64) (float64, error) { return x, nil }
func (v *Variable) precedence() int                 { return precAtom }
func (v *Variable) String() string                  { return v.name }
func (v *Variable) LaTeX() string                   { return v.name }
func (v *Variable) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "var", "name": v.name}
}

// ============================================================
// Binary: + - * / ^
// ============================================================

// Binary applies one of the operators + - * / ^ to two operands.
type Binary struct {
	op          byte
	left, right Node
}

func (b *Binary) Op() byte        { return b.op }
func (b *Binary) Left() Node      { return b.left }
func (b *Binary) Right() Node     { return b.right }
func (b *Binary) precedence() int { return opPrecedence(b.op) }

func opPrecedence(op byte) int {
	switch op {
	case '+', '-':
		return precAdd
	case '*', '/':
		return precMul
	}
	return precPow
}

func (b *Binary) eval(x float64) (float64, error) {
	l, err := b.left.eval(x)
	if err != nil {
		return 0, err
	}
	r, err := b.right.eval(x)
	if err != nil {
		return 0, err
	}
	var v float64
	switch b.op {
	case '+':
		v = l + r
	case '-':
		v = l - r
	case '*':
		v = l * r
	case '/':
		if r == 0 {
			return 0, &DomainError{Op: "division by zero", Arg: l}
		}
		v = l / r
	case '^':
		if l < 0 && r != math.Trunc(r) {
			return 0, &DomainError{Op: "non-integer power of a negative base", Arg: l}
		}
		if l == 0 && r < 0 {
			return 0, &DomainError{Op: "negative power of zero", Arg: r}
		}
		v = math.Pow(l, r)
	default:
		return 0, fmt.Errorf("%w: unsupported operator %q", ErrParse, b.op)
	}
	if !isFinite(v) {
		return 0, &DomainError{Op: "overflow in " + string(b.op), Arg: l, Overflow: true}
	}
	return v, nil
}

func (b *Binary) String() string {
	p := b.precedence()
	left, right := b.left.String(), b.right.String()
	if lp := b.left.precedence(); lp < p || (b.op == '^' && lp <= p) {
		left = "(" + left + ")"
	}
	rp := b.right.precedence()
	switch {
	case rp < p:
		right = "(" + right + ")"
	case rp == p && b.op != '^':
		right = "(" + right + ")"
	}
	switch b.op {
	case '+', '-':
		return left + " " + string(b.op) + " " + right
	}
	return left + string(b.op) + right
}

func (b *Binary) LaTeX() string {
	switch b.op {
	case '/':
		return "\\frac{" + b.left.LaTeX() + "}{" + b.right.LaTeX() + "}"
	case '^':
		base := b.left.LaTeX()
		if b.left.precedence() <= precPow {
			base = "\\left(" + base + "\\right)"
		}
		return base + "^{" + b.right.LaTeX() + "}"
	}
	p := b.precedence()
	left, right := b.left.LaTeX(), b.right.LaTeX()
	if b.left.precedence() < p {
		left = "\\left(" + left + "\\right)"
	}
	if rp := b.right.precedence(); rp < p || (rp == p && b.op == '-') {
		right = "\\left(" + right + "\\right)"
	}
	if b.op == '*' {
		return left + " \\cdot " + right
	}
	return left + " " + string(b.op) + " " + right
}

func (b *Binary) toJSON() map[string]interface{} {
	return map[string]interface{}{
		"type":  "binary",
		"op":    string(b.op),
		"left":  b.left.toJSON(),
		"right": b.right.toJSON(),
	}
}

// ============================================================
// Unary: negation
// ============================================================

// Unary negates its operand.
type Unary struct{ operand Node }

func (u *Unary) Operand() Node   { return u.operand }
func (u *Unary) precedence() int { return precUnary }

func (u *Unary) eval(x float64) (float64, error) {
	v, err := u.operand.eval(x)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (u *Unary) String() string {
	if u.operand.precedence() < precUnary {
		return "-(" + u.operand.String() + ")"
	}
	return "-" + u.operand.String()
}

func (u *Unary) LaTeX() string {
	if u.operand.precedence() < precUnary {
		return "-\\left(" + u.operand.LaTeX() + "\\right)"
	}
	return "-" + u.operand.LaTeX()
}

func (u *Unary) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "neg", "arg": u.operand.toJSON()}
}

// ============================================================
// Call: named function applications
// ============================================================

// Call applies a named function such as sin or ln to its argument.
type Call struct {
	fn  *function
	arg Node
}

func (c *Call) Func() string    { return c.fn.name }
func (c *Call) Arg() Node       { return c.arg }
func (c *Call) precedence() int { return precAtom }
func (c *Call) String() string  { return c.fn.name + "(" + c.arg.String() + ")" }

func (c *Call) eval(x float64) (float64, error) {
	a, err := c.arg.eval(x)
	if err != nil {
		return 0, err
	}
	if c.fn.domain != nil && !c.fn.domain(a) {
		return 0, &DomainError{Op: c.fn.name, Arg: a}
	}
	v := c.fn.apply(a)
	if !isFinite(v) {
		return 0, &DomainError{Op: c.fn.name, Arg: a, Overflow: true}
	}
	return v, nil
}

func (c *Call) LaTeX() string {
	arg := c.arg.LaTeX()
	switch c.fn.name {
	case "sqrt":
		return "\\sqrt{" + arg + "}"
	case "cbrt":
		return "\\sqrt[3]{" + arg + "}"
	case "abs":
		return "\\left|" + arg + "\\right|"
	case "floor":
		return "\\lfloor " + arg + " \\rfloor"
	case "ceil":
		return "\\lceil " + arg + " \\rceil"
	case "log":
		return "\\log_{10}\\left(" + arg + "\\right)"
	case "log2":
		return "\\log_{2}\\left(" + arg + "\\right)"
	case "asin", "acos", "atan":
		return "\\arc" + c.fn.name[1:] + "\\left(" + arg + "\\right)"
	case "sign":
		return "\\operatorname{sign}\\left(" + arg + "\\right)"
	}
	return "\\" + c.fn.name + "\\left(" + arg + "\\right)"
}

func (c *Call) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "func", "name": c.fn.name, "arg": c.arg.toJSON()}
}

type function struct {
	name   string
	apply  func(float64) float64
	domain func(float64) bool
}

func positive(v float64) bool    { return v > 0 }
func nonNegative(v float64) bool { return v >= 0 }
func unitRange(v float64) bool   { return v >= -1 && v <= 1 }

var functions = map[string]*function{}

func init() {
	for _, f := range []*function{
		{name: "sin", apply: math.Sin},
		{name: "cos", apply: math.Cos},
		{name: "tan", apply: math.Tan},
		{name: "asin", apply: math.Asin, domain: unitRange},
		{name: "acos", apply: math.Acos, domain: unitRange},
		{name: "atan", apply: math.Atan},
		{name: "sinh", apply: math.Sinh},
		{name: "cosh", apply: math.Cosh},
		{name: "tanh", apply: math.Tanh},
		{name: "exp", apply: math.Exp},
		{name: "ln", apply: math.Log, domain: positive},
		{name: "log", apply: math.Log10, domain: positive},
		{name: "log2", apply: math.Log2, domain: positive},
		{name: "sqrt", apply: math.Sqrt, domain: nonNegative},
		{name: "cbrt", apply: math.Cbrt},
		{name: "abs", apply: math.Abs},
		{name: "floor", apply: math.Floor},
		{name: "ceil", apply: math.Ceil},
		{name: "sign", apply: sign},
	} {
		functions[f.name] = f
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Functions returns the names of the supported functions, sorted.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ============================================================
// Expression
// ============================================================

// Expression is a parsed single-variable function. It is immutable after
// construction and may be evaluated concurrently.
type Expression struct {
	root     Node
	source   string
	variable string
}

// Root returns the top node of the tree.
func (e *Expression) Root() Node { return e.root }

// Source returns the text the expression was parsed from, or its canonical
// form when it was built from JSON.
func (e *Expression) Source() string { return e.source }

// Variable returns the name of the free variable.
func (e *Expression) Variable() string { return e.variable }

func (e *Expression) String() string { return e.root.String() }
func (e *Expression) LaTeX() string  { return e.root.LaTeX() }

// Eval evaluates the expression at x.
func (e *Expression) Eval(x float64) (float64, error) {
	if !isFinite(x) {
		return 0, fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidArgument, e.variable, x)
	}
	v, err := e.root.eval(x)
	if err != nil {
		var de *DomainError
		if errors.As(err, &de) {
			return 0, fmt.Errorf("at %s=%g: %w", e.variable, x, err)
		}
		return 0, err
	}
	return v, nil
}

// Evaluate evaluates expr at x.
func Evaluate(expr *Expression, x float64) (float64, error) {
	if expr == nil {
		return 0, fmt.Errorf("%w: nil expression", ErrInvalidArgument)
	}
	return expr.Eval(x)
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
