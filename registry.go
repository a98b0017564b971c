package gocalc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
)

// ============================================================
// Operation registry
// ============================================================

// ParamType is the kind of value an operation parameter accepts.
type ParamType string

const (
	// TypeExpression accepts expression text or a JSON tree.
	TypeExpression ParamType = "expression"
	// TypeNumber accepts any finite number.
	TypeNumber ParamType = "number"
	// TypeInteger accepts a whole number.
	TypeInteger ParamType = "integer"
)

// Param describes one named argument of an Operation.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
}

// Args holds arguments after coercion: *Expression for expression params,
// float64 for numbers and int for integers.
type Args map[string]interface{}

// Expression returns the expression argument name.
func (a Args) Expression(name string) *Expression {
	e, _ := a[name].(*Expression)
	return e
}

// Number returns the number argument name.
func (a Args) Number(name string) float64 {
	v, _ := a[name].(float64)
	return v
}

// Int returns the integer argument name, or def when it was not given.
func (a Args) Int(name string, def int) int {
	if v, ok := a[name].(int); ok {
		return v
	}
	return def
}

// Operation is a named calculation that can be dispatched by name.
type Operation struct {
	Name        string
	Description string
	Params      []Param
	Invoke      func(ctx context.Context, args Args) (interface{}, error)
	// Render formats a result for humans. Nil means the default formatting.
	Render func(result interface{}) string
}

// Observer receives one notification per dispatched call. kind is empty on
// success.
type Observer interface {
	ObserveCall(name, kind string, duration time.Duration)
}

// Request asks the registry to run Tool with Params.
type Request struct {
	ID     string                 `json:"id,omitempty"`
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
	// Variable names the free variable of expression params; default x.
	Variable string `json:"variable,omitempty"`
}

// Response is the outcome of a Request. Exactly one of Result and Error is set.
type Response struct {
	ID     string      `json:"id,omitempty"`
	Tool   string      `json:"tool"`
	Result interface{} `json:"result,omitempty"`
	Text   string      `json:"text,omitempty"`
	Error  string      `json:"error,omitempty"`
	Kind   string      `json:"kind,omitempty"`
}

// Point is the solution of a linear system.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return "(" + formatFloat(p.X) + ", " + formatFloat(p.Y) + ")"
}

// Registry maps operation names to operations. Names are case-insensitive.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	ops      map[string]*Operation
	observer Observer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithObserver installs an Observer notified after every Call.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) { r.observer = o }
}

// NewRegistry returns a registry holding the built-in operations, bound to
// calc. A nil calc uses DefaultCalculator.
func NewRegistry(calc *Calculator, opts ...RegistryOption) *Registry {
	if calc == nil {
		calc = defaultCalculator
	}
	r := &Registry{ops: make(map[string]*Operation)}
	for _, opt := range opts {
		opt(r)
	}
	r.Add(builtins(calc)...)
	return r
}

// Add registers ops, replacing any operation with the same name.
func (r *Registry) Add(ops ...*Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, op := range ops {
		r.ops[strings.ToLower(op.Name)] = op
	}
}

// Get returns the operation called name.
func (r *Registry) Get(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[strings.ToLower(name)]
	return op, ok
}

// Operations returns the registered operations sorted by name.
func (r *Registry) Operations() []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	ops := r.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name
	}
	return names
}

// Call validates req against the operation's parameters, invokes it and
// renders the result. Failures are reported in the Response, never panicked.
func (r *Registry) Call(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	resp = Response{ID: req.ID, Tool: req.Tool}
	defer func() {
		if r.observer != nil {
			r.observer.ObserveCall(strings.ToLower(req.Tool), resp.Kind, time.Since(start))
		}
	}()

	fail := func(err error) Response {
		resp.Error = err.Error()
		resp.Kind = ErrorKind(err)
		return resp
	}

	op, ok := r.Get(req.Tool)
	if !ok {
		return fail(fmt.Errorf("%w: %q (available: %s)", ErrUnknownOperation, req.Tool, strings.Join(r.Names(), ", ")))
	}
	args, err := op.bind(req.Params, req.Variable)
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	result, err := op.Invoke(ctx, args)
	if err != nil {
		return fail(err)
	}
	resp.Result = result
	if op.Render != nil {
		resp.Text = op.Render(result)
	} else {
		resp.Text = render(result)
	}
	return resp
}

// Positional maps positional text arguments onto the parameters of the
// operation called name, in declaration order.
func (r *Registry) Positional(name string, values []string) (Request, error) {
	op, ok := r.Get(name)
	if !ok {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	if len(values) > len(op.Params) {
		return Request{}, fmt.Errorf("%w: %s takes at most %d arguments, got %d", ErrInvalidArgument, op.Name, len(op.Params), len(values))
	}
	params := make(map[string]interface{}, len(values))
	for i, v := range values {
		params[op.Params[i].Name] = v
	}
	return Request{Tool: op.Name, Params: params}, nil
}

func (o *Operation) bind(params map[string]interface{}, variable string) (Args, error) {
	args := make(Args, len(o.Params))
	for _, p := range o.Params {
		raw, ok := params[p.Name]
		if !ok || raw == nil {
			if p.Required {
				return nil, fmt.Errorf("%w: %s: missing param %q", ErrInvalidArgument, o.Name, p.Name)
			}
			continue
		}
		v, err := coerce(p, raw, variable)
		if err != nil {
			return nil, fmt.Errorf("%s: param %q: %w", o.Name, p.Name, err)
		}
		args[p.Name] = v
	}
	for name := range params {
		if !o.hasParam(name) {
			return nil, fmt.Errorf("%w: %s: unknown param %q", ErrInvalidArgument, o.Name, name)
		}
	}
	return args, nil
}

func (o *Operation) hasParam(name string) bool {
	for _, p := range o.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func coerce(p Param, raw interface{}, variable string) (interface{}, error) {
	switch p.Type {
	case TypeExpression:
		return DecodeExpression(raw, variable)
	case TypeNumber:
		v, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: must be finite, got %g", ErrInvalidArgument, v)
		}
		return v, nil
	case TypeInteger:
		v, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return nil, fmt.Errorf("%w: must be an integer, got %g", ErrInvalidArgument, v)
		}
		return int(v), nil
	}
	return nil, fmt.Errorf("unknown param type %q", p.Type)
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			// Accept constant expressions such as "pi/2".
			e, perr := ParseVar(v, "_")
			if perr != nil || hasVariable(e.Root()) {
				return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidArgument, v)
			}
			f, err = e.Eval(0)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, v, err)
			}
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalidArgument, raw)
}

func hasVariable(n Node) bool {
	switch n := n.(type) {
	case *Variable:
		return true
	case *Unary:
		return hasVariable(n.operand)
	case *Binary:
		return hasVariable(n.left) || hasVariable(n.right)
	case *Call:
		return hasVariable(n.arg)
	}
	return false
}

func render(result interface{}) string {
	switch v := result.(type) {
	case float64:
		return formatFloat(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(result)
}

// DecodeRequest parses a JSON request. Lenient input (single quotes, trailing
// commas, unquoted keys) is repaired before giving up. A request without an
// ID is assigned a random one.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return Request{}, fmt.Errorf("%w: request is not JSON: %w", ErrInvalidArgument, err)
		}
		req = Request{}
		if err := json.Unmarshal([]byte(repaired), &req); err != nil {
			return Request{}, fmt.Errorf("%w: request is not JSON: %w", ErrInvalidArgument, err)
		}
	}
	if req.Tool == "" {
		return Request{}, fmt.Errorf("%w: request has no tool", ErrInvalidArgument)
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	return req, nil
}

// Schema describes every registered operation as an MCP tool definition.
func (r *Registry) Schema() map[string]interface{} {
	ops := r.Operations()
	tools := make([]map[string]interface{}, len(ops))
	for i, op := range ops {
		properties := map[string]interface{}{}
		required := []string{}
		for _, p := range op.Params {
			prop := map[string]interface{}{"type": string(p.Type)}
			if p.Type == TypeExpression {
				prop = map[string]interface{}{
					"type":        "string",
					"description": "expression in x, e.g. sin(x)/x",
				}
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		tools[i] = map[string]interface{}{
			"name":        op.Name,
			"description": op.Description,
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		}
	}
	return map[string]interface{}{"tools": tools}
}

// ============================================================
// Built-in operations
// ============================================================

func builtins(c *Calculator) []*Operation {
	expr := Param{Name: "expression", Type: TypeExpression, Required: true}
	at := Param{Name: "x", Type: TypeNumber, Required: true}
	num := func(name string) Param { return Param{Name: name, Type: TypeNumber, Required: true} }
	integer := func(name string) Param { return Param{Name: name, Type: TypeInteger, Required: true} }

	limit := func(name, desc string, fn func(*Expression, float64) (float64, error)) *Operation {
		return &Operation{
			Name:        name,
			Description: desc,
			Params:      []Param{expr, at},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return fn(a.Expression("expression"), a.Number("x"))
			},
		}
	}

	return []*Operation{
		{
			Name:        "evaluate",
			Description: "Evaluate the expression at x",
			Params:      []Param{expr, at},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return c.Evaluate(a.Expression("expression"), a.Number("x"))
			},
		},
		{
			Name:        "differentiation",
			Description: "Numerical derivative of the given order (default 1) at x",
			Params:      []Param{expr, at, {Name: "order", Type: TypeInteger}},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return c.Differentiate(a.Expression("expression"), a.Number("x"), a.Int("order", 1))
			},
		},
		limit("limit", "Two-sided limit as the variable approaches x", c.Limit),
		limit("limit-left", "Limit as the variable approaches x from below", c.LimitLeft),
		limit("limit-right", "Limit as the variable approaches x from above", c.LimitRight),
		{
			Name:        "tangent-line",
			Description: "Tangent line to the expression at x",
			Params:      []Param{expr, at},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return c.TangentLine(a.Expression("expression"), a.Number("x"))
			},
		},
		{
			Name:        "taylor-series",
			Description: "Taylor polynomial around x with the given number of terms",
			Params:      []Param{expr, at, {Name: "terms", Type: TypeInteger}},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return c.TaylorSeries(a.Expression("expression"), a.Number("x"), a.Int("terms", c.settings.TaylorTerms))
			},
		},
		{
			Name:        "linear-system-solution",
			Description: "Intersection of y = m1*x + b1 and y = m2*x + b2",
			Params:      []Param{num("m1"), num("b1"), num("m2"), num("b2")},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				f := LinearFunction{Slope: a.Number("m1"), Intercept: a.Number("b1")}
				g := LinearFunction{Slope: a.Number("m2"), Intercept: a.Number("b2")}
				x, y, err := f.Intersect(g)
				if err != nil {
					return nil, err
				}
				return Point{X: x, Y: y}, nil
			},
		},
		{
			Name:        "factorial",
			Description: "a! for 0 <= a <= 170",
			Params:      []Param{integer("a")},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return Factorial(a.Int("a", 0))
			},
		},
		{
			Name:        "combination",
			Description: "Number of ways to choose r items from n",
			Params:      []Param{integer("n"), integer("r")},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return Combination(a.Int("n", 0), a.Int("r", 0))
			},
		},
		{
			Name:        "round",
			Description: "Truncate x to the given number of decimal places",
			Params:      []Param{num("x"), integer("places")},
			Invoke: func(_ context.Context, a Args) (interface{}, error) {
				return Round(a.Number("x"), a.Int("places", 0)), nil
			},
		},
	}
}
