package gocalc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gocalc"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveCall(name, kind string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, name+":"+kind)
}

func call(t *testing.T, reg *gocalc.Registry, tool string, params map[string]interface{}) gocalc.Response {
	t.Helper()
	return reg.Call(context.Background(), gocalc.Request{ID: "t1", Tool: tool, Params: params})
}

// ============================================================
// Dispatch
// ============================================================

func TestRegistry_Builtins(t *testing.T) {
	reg := gocalc.NewRegistry(nil)
	assert.Equal(t, []string{
		"combination",
		"differentiation",
		"evaluate",
		"factorial",
		"limit",
		"limit-left",
		"limit-right",
		"linear-system-solution",
		"round",
		"tangent-line",
		"taylor-series",
	}, reg.Names())
}

func TestRegistry_Call(t *testing.T) {
	reg := gocalc.NewRegistry(nil)

	tests := []struct {
		tool   string
		params map[string]interface{}
		text   string
	}{
		{"evaluate", map[string]interface{}{"expression": "x^2", "x": 3.0}, "9"},
		{"evaluate", map[string]interface{}{"expression": "x^2", "x": "3"}, "9"},
		{"evaluate", map[string]interface{}{"expression": "sin(x)", "x": "pi/2"}, "1"},
		{"Evaluate", map[string]interface{}{"expression": "x + 1", "x": 1}, "2"},
		{"limit-right", map[string]interface{}{"expression": "abs(x)/x", "x": 0.0}, "1"},
		{"limit-left", map[string]interface{}{"expression": "abs(x)/x", "x": 0.0}, "-1"},
		{"linear-system-solution", map[string]interface{}{"m1": 2.0, "b1": 0.0, "m2": -1.0, "b2": 3.0}, "(1, 2)"},
		{"factorial", map[string]interface{}{"a": 5.0}, "120"},
		{"combination", map[string]interface{}{"n": "5", "r": 2.0}, "10"},
		{"round", map[string]interface{}{"x": 3.14159, "places": 2.0}, "3.14"},
	}
	for _, tt := range tests {
		t.Run(tt.tool+" "+tt.text, func(t *testing.T) {
			resp := call(t, reg, tt.tool, tt.params)
			require.Empty(t, resp.Error)
			assert.Empty(t, resp.Kind)
			assert.Equal(t, "t1", resp.ID)
			assert.Equal(t, tt.text, resp.Text)
			assert.NotNil(t, resp.Result)
		})
	}
}

func TestRegistry_NumericResults(t *testing.T) {
	reg := gocalc.NewRegistry(nil)

	resp := call(t, reg, "differentiation", map[string]interface{}{"expression": "x^3", "x": 2.0, "order": 2.0})
	require.Empty(t, resp.Error)
	assert.InDelta(t, 12, resp.Result.(float64), 1e-5)

	resp = call(t, reg, "limit", map[string]interface{}{"expression": "sin(x)/x", "x": 0.0})
	require.Empty(t, resp.Error)
	assert.InDelta(t, 1, resp.Result.(float64), 1e-6)

	resp = call(t, reg, "tangent-line", map[string]interface{}{"expression": "x^2", "x": 3.0})
	require.Empty(t, resp.Error)
	lf := resp.Result.(gocalc.LinearFunction)
	assert.InDelta(t, 6, lf.Slope, 1e-6)
	assert.Contains(t, resp.Text, "y = ")

	resp = call(t, reg, "taylor-series", map[string]interface{}{"expression": "exp(x)", "x": 0.0})
	require.Empty(t, resp.Error)
	assert.Len(t, resp.Result.(gocalc.Polynomial).Coefficients, gocalc.DefaultSettings().TaylorTerms)

	resp = call(t, reg, "taylor-series", map[string]interface{}{"expression": "exp(x)", "x": 0.0, "terms": 2.0})
	require.Empty(t, resp.Error)
	assert.Len(t, resp.Result.(gocalc.Polynomial).Coefficients, 2)
}

func TestRegistry_FailureKinds(t *testing.T) {
	reg := gocalc.NewRegistry(nil)

	tests := []struct {
		name   string
		tool   string
		params map[string]interface{}
		kind   string
	}{
		{"unknown tool", "integrate", nil, gocalc.KindUnknownOperation},
		{"missing param", "evaluate", map[string]interface{}{"expression": "x"}, gocalc.KindInvalidArgument},
		{"unknown param", "evaluate", map[string]interface{}{"expression": "x", "x": 1.0, "y": 2.0}, gocalc.KindInvalidArgument},
		{"mistyped number", "evaluate", map[string]interface{}{"expression": "x", "x": true}, gocalc.KindInvalidArgument},
		{"number with variable", "evaluate", map[string]interface{}{"expression": "x", "x": "x + 1"}, gocalc.KindInvalidArgument},
		{"number is placeholder", "evaluate", map[string]interface{}{"expression": "x", "x": "_"}, gocalc.KindInvalidArgument},
		{"number with placeholder", "evaluate", map[string]interface{}{"expression": "x", "x": "2*_ + 1"}, gocalc.KindInvalidArgument},
		{"undefined number", "evaluate", map[string]interface{}{"expression": "x", "x": "1/0"}, gocalc.KindInvalidArgument},
		{"fractional integer", "factorial", map[string]interface{}{"a": 2.5}, gocalc.KindInvalidArgument},
		{"parse", "evaluate", map[string]interface{}{"expression": "x +", "x": 1.0}, gocalc.KindParse},
		{"domain", "evaluate", map[string]interface{}{"expression": "1/x", "x": 0.0}, gocalc.KindDomain},
		{"limit", "limit", map[string]interface{}{"expression": "1/x", "x": 0.0}, gocalc.KindLimit},
		{"parallel lines", "linear-system-solution", map[string]interface{}{"m1": 1.0, "b1": 0.0, "m2": 1.0, "b2": 1.0}, gocalc.KindInvalidArgument},
		{"factorial range", "factorial", map[string]interface{}{"a": 171.0}, gocalc.KindInvalidArgument},
		{"taylor terms", "taylor-series", map[string]interface{}{"expression": "x", "x": 0.0, "terms": 0.0}, gocalc.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, reg, tt.tool, tt.params)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Nil(t, resp.Result)
			assert.Empty(t, resp.Text)
		})
	}
}

func TestRegistry_ExpressionTreeParam(t *testing.T) {
	reg := gocalc.NewRegistry(nil)
	tree := map[string]interface{}{
		"type": "binary", "op": "*",
		"left":  map[string]interface{}{"type": "num", "value": 3.0},
		"right": map[string]interface{}{"type": "var", "name": "x"},
	}
	resp := call(t, reg, "evaluate", map[string]interface{}{"expression": tree, "x": 2.0})
	require.Empty(t, resp.Error)
	assert.Equal(t, "6", resp.Text)
}

func TestRegistry_Variable(t *testing.T) {
	reg := gocalc.NewRegistry(nil)
	resp := reg.Call(context.Background(), gocalc.Request{
		Tool:     "evaluate",
		Params:   map[string]interface{}{"expression": "t^2", "x": 4.0},
		Variable: "t",
	})
	require.Empty(t, resp.Error)
	assert.Equal(t, "16", resp.Text)
}

func TestRegistry_CancelledContext(t *testing.T) {
	reg := gocalc.NewRegistry(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := reg.Call(ctx, gocalc.Request{Tool: "evaluate", Params: map[string]interface{}{"expression": "x", "x": 1.0}})
	assert.Equal(t, gocalc.KindInternal, resp.Kind)
	assert.Contains(t, resp.Error, "context canceled")
}

func TestRegistry_Observer(t *testing.T) {
	obs := &recordingObserver{}
	reg := gocalc.NewRegistry(nil, gocalc.WithObserver(obs))
	call(t, reg, "Evaluate", map[string]interface{}{"expression": "x", "x": 1.0})
	call(t, reg, "evaluate", map[string]interface{}{"expression": "1/x", "x": 0.0})
	call(t, reg, "nope", nil)
	assert.Equal(t, []string{"evaluate:", "evaluate:domain", "nope:unknown_operation"}, obs.calls)
}

func TestRegistry_CustomCalculator(t *testing.T) {
	s := gocalc.DefaultSettings()
	s.TaylorTerms = 3
	calc, err := gocalc.New(s)
	require.NoError(t, err)

	reg := gocalc.NewRegistry(calc)
	resp := call(t, reg, "taylor-series", map[string]interface{}{"expression": "exp(x)", "x": 0.0})
	require.Empty(t, resp.Error)
	assert.Len(t, resp.Result.(gocalc.Polynomial).Coefficients, 3)
}

func TestRegistry_AddAndRender(t *testing.T) {
	reg := gocalc.NewRegistry(nil)
	reg.Add(&gocalc.Operation{
		Name:   "Double",
		Params: []gocalc.Param{{Name: "v", Type: gocalc.TypeNumber, Required: true}},
		Invoke: func(_ context.Context, a gocalc.Args) (interface{}, error) {
			return 2 * a.Number("v"), nil
		},
		Render: func(r interface{}) string { return "twice is " + gocalc.LinearFunction{Slope: r.(float64)}.String() },
	})
	op, ok := reg.Get("double")
	require.True(t, ok)
	assert.Equal(t, "Double", op.Name)

	resp := call(t, reg, "DOUBLE", map[string]interface{}{"v": 2.0})
	require.Empty(t, resp.Error)
	assert.Equal(t, "twice is y = 4x + 0", resp.Text)
}

func TestRegistry_Positional(t *testing.T) {
	reg := gocalc.NewRegistry(nil)
	req, err := reg.Positional("Differentiation", []string{"x^3", "2", "2"})
	require.NoError(t, err)
	assert.Equal(t, "differentiation", req.Tool)
	assert.Equal(t, map[string]interface{}{"expression": "x^3", "x": "2", "order": "2"}, req.Params)

	resp := reg.Call(context.Background(), req)
	require.Empty(t, resp.Error)
	assert.InDelta(t, 12, resp.Result.(float64), 1e-5)

	_, err = reg.Positional("evaluate", []string{"x", "1", "2"})
	assert.ErrorIs(t, err, gocalc.ErrInvalidArgument)
	_, err = reg.Positional("nope", nil)
	assert.ErrorIs(t, err, gocalc.ErrUnknownOperation)
}

// ============================================================
// Requests and schema
// ============================================================

func TestDecodeRequest(t *testing.T) {
	req, err := gocalc.DecodeRequest([]byte(`{"id": "r1", "tool": "evaluate", "params": {"expression": "x", "x": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, "r1", req.ID)
	assert.Equal(t, "evaluate", req.Tool)
	assert.Equal(t, 2.0, req.Params["x"])
}

func TestDecodeRequest_RepairsLenientJSON(t *testing.T) {
	req, err := gocalc.DecodeRequest([]byte(`{tool: 'combination', params: {n: 5, r: 2,},}`))
	require.NoError(t, err)
	assert.Equal(t, "combination", req.Tool)
	_, err = uuid.Parse(req.ID)
	assert.NoError(t, err)

	resp := gocalc.NewRegistry(nil).Call(context.Background(), req)
	assert.Equal(t, "10", resp.Text)
	assert.Equal(t, req.ID, resp.ID)
}

func TestDecodeRequest_Errors(t *testing.T) {
	for _, in := range []string{`[1, 2`, `{"params": {}}`, `"evaluate"`} {
		_, err := gocalc.DecodeRequest([]byte(in))
		assert.ErrorIs(t, err, gocalc.ErrInvalidArgument, "input %s", in)
	}
}

func TestRegistry_Schema(t *testing.T) {
	schema := gocalc.NewRegistry(nil).Schema()
	tools, ok := schema["tools"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, tools, 11)

	var diff map[string]interface{}
	for _, tool := range tools {
		if tool["name"] == "differentiation" {
			diff = tool
		}
	}
	require.NotNil(t, diff)
	input := diff["inputSchema"].(map[string]interface{})
	assert.Equal(t, []string{"expression", "x"}, input["required"])
	props := input["properties"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "integer"}, props["order"])
	assert.Equal(t, map[string]interface{}{"type": "number"}, props["x"])
}
