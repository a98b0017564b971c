package gocalc

import (
	"encoding/json"
	"fmt"
	"math"
)

// ============================================================
// JSON Serialization
// ============================================================

// ToJSON encodes the expression tree. Nodes are objects tagged by "type":
// num, const, var, binary, neg and func.
func ToJSON(e *Expression) (string, error) {
	if e == nil {
		return "", fmt.Errorf("%w: nil expression", ErrInvalidArgument)
	}
	b, err := json.Marshal(e.root.toJSON())
	return string(b), err
}

// FromJSON rebuilds an expression in variable from a tree produced by ToJSON
// and decoded into generic maps. Malformed trees fail with ErrParse.
func FromJSON(data map[string]interface{}, variable string) (*Expression, error) {
	if variable == "" {
		variable = DefaultVariable
	}
	if err := checkVariable(variable); err != nil {
		return nil, err
	}
	root, err := nodeFromJSON(data, variable)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &Expression{root: root, source: root.String(), variable: variable}, nil
}

// DecodeExpression accepts either expression text or a JSON tree decoded into
// a map, as found in tool arguments.
func DecodeExpression(v interface{}, variable string) (*Expression, error) {
	switch val := v.(type) {
	case string:
		if variable == "" {
			variable = DefaultVariable
		}
		return ParseVar(val, variable)
	case map[string]interface{}:
		return FromJSON(val, variable)
	case *Expression:
		if val == nil {
			return nil, fmt.Errorf("%w: nil expression", ErrInvalidArgument)
		}
		return val, nil
	}
	return nil, fmt.Errorf("%w: expression must be a string or an object, got %T", ErrInvalidArgument, v)
}

func nodeFromJSON(data map[string]interface{}, variable string) (Node, error) {
	if data == nil {
		return nil, fmt.Errorf("node must be an object")
	}
	typ, ok := data["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subObj := func(field string) (Node, error) {
		v, ok := data[field]
		if !ok {
			return nil, fmt.Errorf("%s: missing %q", typ, field)
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		n, err := nodeFromJSON(m, variable)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", typ, field, err)
		}
		return n, nil
	}

	subString := func(field string) (string, error) {
		s, ok := data[field].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	switch typ {
	case "num":
		v, ok := data["value"].(float64)
		if !ok {
			return nil, fmt.Errorf("num: 'value' must be a number")
		}
		if !isFinite(v) {
			return nil, fmt.Errorf("num: 'value' must be finite")
		}
		// The parser only yields non-negative literals; a negative one
		// becomes a negation so the tree prints back as it parses.
		if math.Signbit(v) {
			return &Unary{operand: &Constant{value: -v}}, nil
		}
		return &Constant{value: v}, nil

	case "const":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		v, ok := constants[name]
		if !ok {
			return nil, fmt.Errorf("unknown constant %q", name)
		}
		return &Constant{value: v, name: name}, nil

	case "var":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		if name != variable {
			return nil, fmt.Errorf("unknown symbol %q (variable is %q)", name, variable)
		}
		return &Variable{name: name}, nil

	case "binary":
		op, err := subString("op")
		if err != nil {
			return nil, err
		}
		if len(op) != 1 || !isBinaryOp(op[0]) {
			return nil, fmt.Errorf("binary: unknown operator %q", op)
		}
		left, err := subObj("left")
		if err != nil {
			return nil, err
		}
		right, err := subObj("right")
		if err != nil {
			return nil, err
		}
		return &Binary{op: op[0], left: left, right: right}, nil

	case "neg":
		arg, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		return &Unary{operand: arg}, nil

	case "func":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		fn, ok := functions[name]
		if !ok {
			return nil, fmt.Errorf("unsupported function %q", name)
		}
		arg, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		return &Call{fn: fn, arg: arg}, nil
	}
	return nil, fmt.Errorf("unknown node type %q", typ)
}

func isBinaryOp(op byte) bool {
	switch op {
	case '+', '-', '*', '/', '^':
		return true
	}
	return false
}
