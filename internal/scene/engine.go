// Package scene models the host map widget: an ordered set of sources and
// layers with per-layer event handlers, exported as a Mapbox GL style.
package scene

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Event names.
const (
	EventLoad       = "load"
	EventIdle       = "idle"
	EventClick      = "click"
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
)

// Layer types.
const (
	LayerFill   = "fill"
	LayerLine   = "line"
	LayerCircle = "circle"
	LayerSymbol = "symbol"
	LayerRaster = "raster"
)

// Source is a data source referenced by layers.
type Source struct {
	Type        string                     `json:"type"`
	Data        *geojson.FeatureCollection `json:"data,omitempty"`
	Tiles       []string                   `json:"tiles,omitempty"`
	TileSize    int                        `json:"tileSize,omitempty"`
	Attribution string                     `json:"attribution,omitempty"`
}

// GeoJSONSource wraps a feature collection.
func GeoJSONSource(fc *geojson.FeatureCollection) Source {
	return Source{Type: "geojson", Data: fc}
}

// Layer is one style layer.
type Layer struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Source  string         `json:"source"`
	Paint   map[string]any `json:"paint,omitempty"`
	Layout  map[string]any `json:"layout,omitempty"`
	Filter  any            `json:"filter,omitempty"`
	MinZoom float64        `json:"minzoom,omitempty"`
	MaxZoom float64        `json:"maxzoom,omitempty"`
}

// Event is delivered to layer handlers.
type Event struct {
	LayerID string
	LngLat  orb.Point
	Feature *geojson.Feature
}

// Handler reacts to a layer event.
type Handler func(Event)

// Popup is an info window anchored at a coordinate.
type Popup struct {
	LngLat orb.Point `json:"lnglat"`
	HTML   string    `json:"html"`
}

// Camera is the map viewpoint.
type Camera struct {
	Center  orb.Point `json:"center"`
	Zoom    float64   `json:"zoom"`
	Pitch   float64   `json:"pitch"`
	Bearing float64   `json:"bearing"`
}

// Engine is the subset of a map widget the synchronizer drives.
type Engine interface {
	IsStyleLoaded() bool
	// Once registers fn to run a single time on the next occurrence of event.
	Once(event string, fn func())
	// On registers a handler for a layer event. Handlers accumulate.
	On(event, layerID string, h Handler)

	HasLayer(id string) bool
	HasSource(id string) bool
	AddSource(id string, src Source) error
	RemoveSource(id string) error
	// AddLayer appends a layer, or inserts it before beforeID when non-empty.
	AddLayer(layer Layer, beforeID string) error
	RemoveLayer(id string) error
	SetFilter(layerID string, filter any) error
	SetPaintProperty(layerID, name string, value any) error

	ShowPopup(p Popup)
	SetCursor(cursor string)
	FlyTo(cam Camera)
}
