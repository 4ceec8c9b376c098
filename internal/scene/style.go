package scene

// Style is a Mapbox GL style v8 document.
type Style struct {
	Version int               `json:"version"`
	Center  [2]float64        `json:"center"`
	Zoom    float64           `json:"zoom"`
	Pitch   float64           `json:"pitch"`
	Bearing float64           `json:"bearing"`
	Glyphs  string            `json:"glyphs,omitempty"`
	Sources map[string]Source `json:"sources"`
	Layers  []Layer           `json:"layers"`
}

// Style snapshots the graph as a style document.
func (g *Graph) Style() Style {
	sources := make(map[string]Source, len(g.sources))
	for id, s := range g.sources {
		sources[id] = s
	}
	layers := make([]Layer, 0, len(g.order))
	for _, id := range g.order {
		layers = append(layers, g.layers[id])
	}
	return Style{
		Version: 8,
		Center:  [2]float64{g.camera.Center[0], g.camera.Center[1]},
		Zoom:    g.camera.Zoom,
		Pitch:   g.camera.Pitch,
		Bearing: g.camera.Bearing,
		Glyphs:  g.base.Glyphs,
		Sources: sources,
		Layers:  layers,
	}
}
