// Package expr builds Mapbox GL style expressions and evaluates them against
// feature properties.
package expr

// Stop is one (input, output) pair of an interpolate or step expression.
type Stop struct {
	Input  float64
	Output any
}

// Arm is one (label, output) pair of a match expression.
type Arm struct {
	Label  any
	Output any
}

// Get reads a feature property.
func Get(key string) []any {
	return []any{"get", key}
}

// Literal wraps an array or object so it is not parsed as an expression.
func Literal(v any) []any {
	return []any{"literal", v}
}

// Coalesce returns the first non-null argument.
func Coalesce(args ...any) []any {
	return append([]any{"coalesce"}, args...)
}

// ToNumber converts the first argument that can be read as a number.
func ToNumber(args ...any) []any {
	return append([]any{"to-number"}, args...)
}

// In tests membership of needle in a literal list.
func In(needle any, haystack any) []any {
	return []any{"in", needle, Literal(haystack)}
}

// Eq compares two values.
func Eq(a, b any) []any {
	return []any{"==", a, b}
}

// Div divides a by b.
func Div(a, b any) []any {
	return []any{"/", a, b}
}

// Case returns then when cond holds, otherwise the fallback.
func Case(cond, then, otherwise any) []any {
	return []any{"case", cond, then, otherwise}
}

// Match maps discrete labels to outputs. With no arms the fallback is
// returned directly, since an armless match is not a valid expression.
func Match(input any, arms []Arm, fallback any) any {
	if len(arms) == 0 {
		return fallback
	}
	e := []any{"match", input}
	for _, a := range arms {
		e = append(e, a.Label, a.Output)
	}
	return append(e, fallback)
}

// Interpolate builds a linear interpolation over ascending stops.
func Interpolate(input any, stops []Stop) []any {
	e := []any{"interpolate", []any{"linear"}, input}
	for _, s := range stops {
		e = append(e, s.Input, s.Output)
	}
	return e
}

// Step builds a stepped function: base below the first stop, then each
// stop's output from its input upward.
func Step(input any, base any, stops []Stop) []any {
	e := []any{"step", input, base}
	for _, s := range stops {
		e = append(e, s.Input, s.Output)
	}
	return e
}
