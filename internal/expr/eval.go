package expr

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Eval evaluates an expression against feature properties. It supports the
// operators this package builds plus basic arithmetic and comparison.
func Eval(e any, props map[string]any) (any, error) {
	arr, ok := e.([]any)
	if !ok {
		return normalize(e), nil
	}
	if len(arr) == 0 {
		return nil, eris.New("expr: empty expression")
	}
	op, ok := arr[0].(string)
	if !ok {
		return nil, eris.Errorf("expr: operator must be a string, got %T", arr[0])
	}
	args := arr[1:]

	switch op {
	case "literal":
		if len(args) != 1 {
			return nil, eris.New("expr: literal takes one argument")
		}
		return args[0], nil
	case "get":
		if len(args) != 1 {
			return nil, eris.New("expr: get takes one argument")
		}
		key, ok := args[0].(string)
		if !ok {
			return nil, eris.New("expr: get key must be a string")
		}
		return normalize(props[key]), nil
	case "coalesce":
		for _, a := range args {
			v, err := Eval(a, props)
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}
		}
		return nil, nil
	case "to-number":
		return evalToNumber(args, props)
	case "in":
		return evalIn(args, props)
	case "match":
		return evalMatch(args, props)
	case "case":
		return evalCase(args, props)
	case "interpolate":
		return evalInterpolate(args, props)
	case "step":
		return evalStep(args, props)
	case "==", "!=":
		if len(args) != 2 {
			return nil, eris.Errorf("expr: %s takes two arguments", op)
		}
		a, err := Eval(args[0], props)
		if err != nil {
			return nil, err
		}
		b, err := Eval(args[1], props)
		if err != nil {
			return nil, err
		}
		eq := equal(a, b)
		if op == "!=" {
			return !eq, nil
		}
		return eq, nil
	case "<", "<=", ">", ">=", "+", "-", "*", "/":
		return evalArith(op, args, props)
	default:
		return nil, eris.Errorf("expr: unsupported operator %q", op)
	}
}

// EvalBool evaluates a filter expression. A nil filter passes everything.
func EvalBool(e any, props map[string]any) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := Eval(e, props)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, eris.Errorf("expr: filter produced %T, want bool", v)
	}
	return b, nil
}

// InterpolateStops linearly interpolates v across ascending stops whose
// outputs are all numbers or all hex colors. Inputs outside the range clamp
// to the end stops.
func InterpolateStops(stops []Stop, v float64) (any, error) {
	if len(stops) == 0 {
		return nil, eris.New("expr: interpolate needs at least one stop")
	}
	if v <= stops[0].Input {
		return stops[0].Output, nil
	}
	last := stops[len(stops)-1]
	if v >= last.Input {
		return last.Output, nil
	}
	for i := 1; i < len(stops); i++ {
		lo, hi := stops[i-1], stops[i]
		if v > hi.Input {
			continue
		}
		t := (v - lo.Input) / (hi.Input - lo.Input)
		return blend(lo.Output, hi.Output, t)
	}
	return last.Output, nil
}

// StepStops returns base when v is below the first stop, otherwise the
// output of the greatest stop whose input is <= v.
func StepStops(base any, stops []Stop, v float64) any {
	out := base
	for _, s := range stops {
		if v < s.Input {
			break
		}
		out = s.Output
	}
	return out
}

func blend(a, b any, t float64) (any, error) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return nil, eris.New("expr: mixed interpolate outputs")
		}
		return fa + (fb-fa)*t, nil
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return nil, eris.Errorf("expr: cannot interpolate %T and %T", a, b)
	}
	ca, err := ParseHex(sa)
	if err != nil {
		return nil, err
	}
	cb, err := ParseHex(sb)
	if err != nil {
		return nil, err
	}
	return Lerp(ca, cb, t).Hex(), nil
}

func evalIn(args []any, props map[string]any) (any, error) {
	if len(args) != 2 {
		return nil, eris.New("expr: in takes two arguments")
	}
	needle, err := Eval(args[0], props)
	if err != nil {
		return nil, err
	}
	hay, err := Eval(args[1], props)
	if err != nil {
		return nil, err
	}
	switch list := hay.(type) {
	case []int:
		for _, x := range list {
			if equal(needle, float64(x)) {
				return true, nil
			}
		}
	case []any:
		for _, x := range list {
			if equal(needle, normalize(x)) {
				return true, nil
			}
		}
	case []string:
		for _, x := range list {
			if equal(needle, x) {
				return true, nil
			}
		}
	default:
		return nil, eris.Errorf("expr: in haystack must be a list, got %T", hay)
	}
	return false, nil
}

func evalMatch(args []any, props map[string]any) (any, error) {
	if len(args) < 2 || len(args)%2 != 0 {
		return nil, eris.New("expr: match needs input, label/output pairs and a fallback")
	}
	input, err := Eval(args[0], props)
	if err != nil {
		return nil, err
	}
	pairs := args[1 : len(args)-1]
	for i := 0; i < len(pairs); i += 2 {
		if equal(input, normalize(pairs[i])) {
			return Eval(pairs[i+1], props)
		}
	}
	return Eval(args[len(args)-1], props)
}

func evalCase(args []any, props map[string]any) (any, error) {
	if len(args) < 3 || len(args)%2 == 0 {
		return nil, eris.New("expr: case needs condition/output pairs and a fallback")
	}
	for i := 0; i+1 < len(args); i += 2 {
		ok, err := EvalBool(args[i], props)
		if err != nil {
			return nil, err
		}
		if ok {
			return Eval(args[i+1], props)
		}
	}
	return Eval(args[len(args)-1], props)
}

func evalInterpolate(args []any, props map[string]any) (any, error) {
	if len(args) < 4 || len(args)%2 != 0 {
		return nil, eris.New("expr: interpolate needs a type, input and stop pairs")
	}
	if kind, ok := args[0].([]any); !ok || len(kind) == 0 || kind[0] != "linear" {
		return nil, eris.New("expr: only linear interpolation is supported")
	}
	v, err := evalNumber(args[1], props)
	if err != nil {
		return nil, err
	}
	stops, err := readStops(args[2:], props)
	if err != nil {
		return nil, err
	}
	return InterpolateStops(stops, v)
}

func evalStep(args []any, props map[string]any) (any, error) {
	if len(args) < 2 || len(args)%2 != 0 {
		return nil, eris.New("expr: step needs input, base and stop pairs")
	}
	v, err := evalNumber(args[0], props)
	if err != nil {
		return nil, err
	}
	base, err := Eval(args[1], props)
	if err != nil {
		return nil, err
	}
	stops, err := readStops(args[2:], props)
	if err != nil {
		return nil, err
	}
	return StepStops(base, stops, v), nil
}

func readStops(flat []any, props map[string]any) ([]Stop, error) {
	stops := make([]Stop, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		in, ok := toFloat(normalize(flat[i]))
		if !ok {
			return nil, eris.Errorf("expr: stop input must be a number, got %T", flat[i])
		}
		out, err := Eval(flat[i+1], props)
		if err != nil {
			return nil, err
		}
		stops = append(stops, Stop{Input: in, Output: out})
	}
	return stops, nil
}

func evalArith(op string, args []any, props map[string]any) (any, error) {
	if len(args) != 2 {
		return nil, eris.Errorf("expr: %s takes two arguments", op)
	}
	a, err := evalNumber(args[0], props)
	if err != nil {
		return nil, err
	}
	b, err := evalNumber(args[1], props)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	default:
		if b == 0 {
			return nil, eris.New("expr: division by zero")
		}
		return a / b, nil
	}
}

func evalToNumber(args []any, props map[string]any) (any, error) {
	if len(args) == 0 {
		return nil, eris.New("expr: to-number takes at least one argument")
	}
	for _, a := range args {
		v, err := Eval(a, props)
		if err != nil {
			return nil, err
		}
		if f, ok := convertNumber(v); ok {
			return f, nil
		}
	}
	return nil, eris.New("expr: to-number found no convertible argument")
}

// convertNumber follows the Mapbox to-number conversion: null is 0, booleans are
// 0 or 1 and strings must parse as a number.
func convertNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return toFloat(v)
	}
}

func evalNumber(e any, props map[string]any) (float64, error) {
	v, err := Eval(e, props)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, eris.Errorf("expr: expected number, got %T", v)
	}
	return f, nil
}

func normalize(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func equal(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	default:
		return false
	}
}
