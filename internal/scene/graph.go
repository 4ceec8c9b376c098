package scene

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/urban-mesh/clustermap/internal/expr"
)

// Base describes the background raster and initial camera.
type Base struct {
	TileURL     string
	Attribution string
	// Glyphs is the {fontstack}/{range} template symbol layers load fonts from.
	Glyphs      string
	Camera      Camera
}

// DefaultGlyphs serves the Noto Sans CJK font stacks used for Japanese labels.
const DefaultGlyphs = "https://maps.gsi.go.jp/xyz/noto-jp/{fontstack}/{range}.pbf"

// LabelFont is the font stack symbol layers request from the glyph server.
const LabelFont = "NotoSansCJKjp-Regular"

// DefaultBase is the GSI pale basemap centred on Fukuoka.
func DefaultBase() Base {
	return Base{
		TileURL:     "https://cyberjapandata.gsi.go.jp/xyz/pale/{z}/{x}/{y}.png",
		Attribution: `<a href="https://maps.gsi.go.jp/development/ichiran.html">国土地理院</a>`,
		Glyphs:      DefaultGlyphs,
		Camera: Camera{
			Center: orb.Point{130.4017, 33.5904},
			Zoom:   10,
		},
	}
}

const (
	baseSourceID = "gsi-pale"
	baseLayerID  = "gsi-pale-layer"
)

type handlerKey struct {
	event string
	layer string
}

// Graph is an in-memory Engine. It is not safe for concurrent use; callers
// serialize access.
type Graph struct {
	loaded   bool
	sources  map[string]Source
	order    []string
	layers   map[string]Layer
	handlers map[handlerKey][]Handler
	once     map[string][]func()
	popups   []Popup
	cursor   string
	camera   Camera
	base     Base
}

// NewGraph creates a graph whose style is not yet loaded.
func NewGraph(base Base) *Graph {
	if base.Glyphs == "" {
		base.Glyphs = DefaultGlyphs
	}
	g := &Graph{
		sources:  make(map[string]Source),
		layers:   make(map[string]Layer),
		handlers: make(map[handlerKey][]Handler),
		once:     make(map[string][]func()),
		camera:   base.Camera,
		base:     base,
	}
	g.sources[baseSourceID] = Source{
		Type:        "raster",
		Tiles:       []string{base.TileURL},
		TileSize:    256,
		Attribution: base.Attribution,
	}
	g.layers[baseLayerID] = Layer{ID: baseLayerID, Type: LayerRaster, Source: baseSourceID, MinZoom: 0, MaxZoom: 18}
	g.order = []string{baseLayerID}
	return g
}

// Load marks the style loaded and fires pending load and idle callbacks.
func (g *Graph) Load() {
	g.loaded = true
	g.fireOnce(EventLoad)
	g.fireOnce(EventIdle)
}

// Idle fires pending idle callbacks once the style is loaded.
func (g *Graph) Idle() {
	if !g.loaded {
		return
	}
	g.fireOnce(EventIdle)
}

func (g *Graph) fireOnce(event string) {
	pending := g.once[event]
	delete(g.once, event)
	for _, fn := range pending {
		fn()
	}
}

// IsStyleLoaded implements Engine.
func (g *Graph) IsStyleLoaded() bool { return g.loaded }

// Once implements Engine.
func (g *Graph) Once(event string, fn func()) {
	g.once[event] = append(g.once[event], fn)
}

// PendingOnce returns how many one-shot callbacks wait on event.
func (g *Graph) PendingOnce(event string) int { return len(g.once[event]) }

// On implements Engine.
func (g *Graph) On(event, layerID string, h Handler) {
	k := handlerKey{event: event, layer: layerID}
	g.handlers[k] = append(g.handlers[k], h)
}

// HandlerCount returns how many handlers are bound to a layer event.
func (g *Graph) HandlerCount(event, layerID string) int {
	return len(g.handlers[handlerKey{event: event, layer: layerID}])
}

// Fire dispatches an event to every handler bound to the layer and returns
// the number of handlers called.
func (g *Graph) Fire(event, layerID string, ev Event) int {
	hs := g.handlers[handlerKey{event: event, layer: layerID}]
	ev.LayerID = layerID
	for _, h := range hs {
		h(ev)
	}
	return len(hs)
}

// HasLayer implements Engine.
func (g *Graph) HasLayer(id string) bool {
	_, ok := g.layers[id]
	return ok
}

// HasSource implements Engine.
func (g *Graph) HasSource(id string) bool {
	_, ok := g.sources[id]
	return ok
}

// AddSource implements Engine.
func (g *Graph) AddSource(id string, src Source) error {
	if _, ok := g.sources[id]; ok {
		return eris.Errorf("scene: source %q already exists", id)
	}
	g.sources[id] = src
	return nil
}

// RemoveSource implements Engine. A source still used by a layer cannot be removed.
func (g *Graph) RemoveSource(id string) error {
	if _, ok := g.sources[id]; !ok {
		return eris.Errorf("scene: source %q does not exist", id)
	}
	for _, lid := range g.order {
		if g.layers[lid].Source == id {
			return eris.Errorf("scene: source %q is in use by layer %q", id, lid)
		}
	}
	delete(g.sources, id)
	return nil
}

// AddLayer implements Engine.
func (g *Graph) AddLayer(layer Layer, beforeID string) error {
	if _, ok := g.layers[layer.ID]; ok {
		return eris.Errorf("scene: layer %q already exists", layer.ID)
	}
	if _, ok := g.sources[layer.Source]; !ok {
		return eris.Errorf("scene: layer %q references missing source %q", layer.ID, layer.Source)
	}
	pos := len(g.order)
	if beforeID != "" {
		pos = g.indexOf(beforeID)
		if pos < 0 {
			return eris.Errorf("scene: before layer %q does not exist", beforeID)
		}
	}
	g.order = append(g.order, "")
	copy(g.order[pos+1:], g.order[pos:])
	g.order[pos] = layer.ID
	g.layers[layer.ID] = layer
	return nil
}

// RemoveLayer implements Engine.
func (g *Graph) RemoveLayer(id string) error {
	i := g.indexOf(id)
	if i < 0 {
		return eris.Errorf("scene: layer %q does not exist", id)
	}
	g.order = append(g.order[:i], g.order[i+1:]...)
	delete(g.layers, id)
	return nil
}

// SetFilter implements Engine.
func (g *Graph) SetFilter(layerID string, filter any) error {
	l, ok := g.layers[layerID]
	if !ok {
		return eris.Errorf("scene: layer %q does not exist", layerID)
	}
	l.Filter = filter
	g.layers[layerID] = l
	return nil
}

// SetPaintProperty implements Engine.
func (g *Graph) SetPaintProperty(layerID, name string, value any) error {
	l, ok := g.layers[layerID]
	if !ok {
		return eris.Errorf("scene: layer %q does not exist", layerID)
	}
	paint := make(map[string]any, len(l.Paint)+1)
	for k, v := range l.Paint {
		paint[k] = v
	}
	paint[name] = value
	l.Paint = paint
	g.layers[layerID] = l
	return nil
}

// ShowPopup implements Engine.
func (g *Graph) ShowPopup(p Popup) { g.popups = append(g.popups, p) }

// Popups returns every popup opened so far.
func (g *Graph) Popups() []Popup { return g.popups }

// LastPopup returns the most recent popup.
func (g *Graph) LastPopup() (Popup, bool) {
	if len(g.popups) == 0 {
		return Popup{}, false
	}
	return g.popups[len(g.popups)-1], true
}

// SetCursor implements Engine.
func (g *Graph) SetCursor(cursor string) { g.cursor = cursor }

// Cursor returns the current canvas cursor.
func (g *Graph) Cursor() string { return g.cursor }

// FlyTo implements Engine.
func (g *Graph) FlyTo(cam Camera) { g.camera = cam }

// Camera returns the current viewpoint.
func (g *Graph) Camera() Camera { return g.camera }

// LayerIDs returns layer ids in draw order, bottom first.
func (g *Graph) LayerIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Layer returns a copy of a layer.
func (g *Graph) Layer(id string) (Layer, bool) {
	l, ok := g.layers[id]
	return l, ok
}

// Source returns a source.
func (g *Graph) Source(id string) (Source, bool) {
	s, ok := g.sources[id]
	return s, ok
}

func (g *Graph) indexOf(id string) int {
	for i, lid := range g.order {
		if lid == id {
			return i
		}
	}
	return -1
}

// Rendered is a feature that passes its layer filter, with data-driven paint
// properties evaluated.
type Rendered struct {
	Index   int              `json:"index"`
	Feature *geojson.Feature `json:"feature"`
	Paint   map[string]any   `json:"paint"`
}

// RenderedFeatures evaluates a layer's filter and paint expressions against
// its GeoJSON source.
func (g *Graph) RenderedFeatures(layerID string) ([]Rendered, error) {
	l, ok := g.layers[layerID]
	if !ok {
		return nil, eris.Errorf("scene: layer %q does not exist", layerID)
	}
	src := g.sources[l.Source]
	if src.Data == nil {
		return nil, eris.Errorf("scene: layer %q has no geojson source", layerID)
	}

	var out []Rendered
	for i, f := range src.Data.Features {
		pass, err := expr.EvalBool(l.Filter, f.Properties)
		if err != nil {
			return nil, eris.Wrapf(err, "scene: filter on %q", layerID)
		}
		if !pass {
			continue
		}
		paint := make(map[string]any, len(l.Paint))
		for k, v := range l.Paint {
			pv, err := expr.Eval(v, f.Properties)
			if err != nil {
				return nil, eris.Wrapf(err, "scene: paint %s on %q", k, layerID)
			}
			paint[k] = pv
		}
		out = append(out, Rendered{Index: i, Feature: f, Paint: paint})
	}
	return out, nil
}
