// Package palette holds the breakpoint/color tables used by every display
// mode and a single evaluator over them.
package palette

import (
	_ "embed"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/urban-mesh/clustermap/internal/expr"
)

//go:embed palettes.yaml
var defaultYAML []byte

// Stop is one threshold of a color ramp.
type Stop struct {
	Value float64 `yaml:"value"`
	Color string  `yaml:"color"`
	Label string  `yaml:"label"`
}

// SizeStop is one threshold of a numeric ramp.
type SizeStop struct {
	Value float64 `yaml:"value"`
	Size  float64 `yaml:"size"`
}

// Ramp is an ordered list of (threshold, color) pairs.
type Ramp struct {
	Title string `yaml:"title"`
	Stops []Stop `yaml:"stops"`
}

// Set is the full palette configuration.
type Set struct {
	ClusterFallback string     `yaml:"cluster_fallback"`
	NoBuildings     string     `yaml:"no_buildings"`
	BufferFill      string     `yaml:"buffer_fill"`
	Density         Ramp       `yaml:"density"`
	Buildings       Ramp       `yaml:"buildings"`
	UsageRatio      Ramp       `yaml:"usage_ratio"`
	StationColor    Ramp       `yaml:"station_color"`
	StationRadius   []SizeStop `yaml:"station_radius"`
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the embedded palette set. It panics if the embedded
// document is malformed, which is a build defect.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := Parse(defaultYAML)
		if err != nil {
			panic(err)
		}
		defaultSet = s
	})
	return defaultSet
}

// Parse decodes and validates a palette document.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "palette: parse")
	}
	for name, r := range map[string]Ramp{
		"density":       s.Density,
		"buildings":     s.Buildings,
		"usage_ratio":   s.UsageRatio,
		"station_color": s.StationColor,
	} {
		if err := r.validate(); err != nil {
			return nil, eris.Wrapf(err, "palette: %s", name)
		}
	}
	if len(s.StationRadius) == 0 {
		return nil, eris.New("palette: station_radius is empty")
	}
	return &s, nil
}

func (r Ramp) validate() error {
	if len(r.Stops) == 0 {
		return eris.New("no stops")
	}
	for i, s := range r.Stops {
		if _, err := expr.ParseHex(s.Color); err != nil {
			return err
		}
		if i > 0 && s.Value <= r.Stops[i-1].Value {
			return eris.Errorf("stop %d is not ascending", i)
		}
	}
	return nil
}

func (r Ramp) exprStops() []expr.Stop {
	out := make([]expr.Stop, len(r.Stops))
	for i, s := range r.Stops {
		out[i] = expr.Stop{Input: s.Value, Output: s.Color}
	}
	return out
}

// InterpolateExpr builds a linear color interpolation over input.
func (r Ramp) InterpolateExpr(input any) []any {
	return expr.Interpolate(input, r.exprStops())
}

// StepExpr builds a stepped color function over input. The first stop's
// color is the base.
func (r Ramp) StepExpr(input any) []any {
	stops := r.exprStops()
	return expr.Step(input, stops[0].Output, stops[1:])
}

// Interpolate evaluates the ramp at v with linear RGB blending.
func (r Ramp) Interpolate(v float64) string {
	out, err := expr.InterpolateStops(r.exprStops(), v)
	if err != nil {
		return r.Stops[0].Color
	}
	s, _ := out.(string)
	return s
}

// Step evaluates the ramp as a step function at v.
func (r Ramp) Step(v float64) string {
	stops := r.exprStops()
	s, _ := expr.StepStops(stops[0].Output, stops[1:], v).(string)
	return s
}

// RadiusExpr builds the station radius interpolation over input.
func (s *Set) RadiusExpr(input any) []any {
	return expr.Interpolate(input, s.radiusStops())
}

// Radius evaluates the station radius at v.
func (s *Set) Radius(v float64) float64 {
	out, err := expr.InterpolateStops(s.radiusStops(), v)
	if err != nil {
		return s.StationRadius[0].Size
	}
	f, _ := out.(float64)
	return f
}

func (s *Set) radiusStops() []expr.Stop {
	out := make([]expr.Stop, len(s.StationRadius))
	for i, st := range s.StationRadius {
		out[i] = expr.Stop{Input: st.Value, Output: st.Size}
	}
	return out
}
