// Package mapview keeps the map scene consistent with the view state. Every
// rebuild is idempotent: layers are removed and recreated, and event
// handlers are bound at most once per layer group.
package mapview

import (
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/metrics"
	"github.com/urban-mesh/clustermap/internal/model"
	"github.com/urban-mesh/clustermap/internal/palette"
	"github.com/urban-mesh/clustermap/internal/scene"
	"github.com/urban-mesh/clustermap/internal/view"
)

// Source and layer ids owned by the synchronizer.
const (
	MeshSource       = "mesh-data"
	MeshFillLayer    = "mesh-fill"
	MeshOutlineLayer = "mesh-outline"

	StationSource     = "stations"
	StationLayer      = "stations"
	StationLabelLayer = "station-labels"

	BufferSource = "station-buffers"
	BufferLayer  = "station-buffers"
)

// Data is the loaded dataset. Mesh and Config are replaced together.
type Data struct {
	Mesh     *geojson.FeatureCollection
	Config   *model.ClusterConfig
	Stations *geojson.FeatureCollection
}

// Synchronizer maps view state and data onto a scene engine.
type Synchronizer struct {
	engine  scene.Engine
	state   *view.State
	data    *Data
	palette *palette.Set

	meshHandlers    bool
	stationHandlers bool
	meshPending     bool
}

// New creates a synchronizer over the caller-owned state and data.
func New(engine scene.Engine, state *view.State, data *Data, pal *palette.Set) *Synchronizer {
	if pal == nil {
		pal = palette.Default()
	}
	return &Synchronizer{engine: engine, state: state, data: data, palette: pal}
}

// RebuildMeshLayers recreates the mesh source and layers from the current
// data. If the style is not loaded yet, the rebuild runs on the next idle.
func (s *Synchronizer) RebuildMeshLayers() error {
	if !s.engine.IsStyleLoaded() {
		if !s.meshPending {
			s.meshPending = true
			metrics.Deferred.Inc()
			s.engine.Once(scene.EventIdle, func() {
				s.meshPending = false
				if err := s.RebuildMeshLayers(); err != nil {
					zap.L().Error("mapview: deferred mesh rebuild failed", zap.Error(err))
				}
			})
		}
		return nil
	}
	if s.data.Mesh == nil {
		return nil
	}

	if err := s.removeLayers(MeshFillLayer, MeshOutlineLayer); err != nil {
		return err
	}
	if err := s.removeSource(MeshSource); err != nil {
		return err
	}

	if err := s.engine.AddSource(MeshSource, scene.GeoJSONSource(s.data.Mesh)); err != nil {
		return eris.Wrap(err, "mapview: add mesh source")
	}
	fill := scene.Layer{
		ID:     MeshFillLayer,
		Type:   scene.LayerFill,
		Source: MeshSource,
		Paint: map[string]any{
			"fill-color":   s.palette.ClusterFallback,
			"fill-opacity": s.state.Opacity,
		},
	}
	if err := s.engine.AddLayer(fill, ""); err != nil {
		return eris.Wrap(err, "mapview: add mesh fill")
	}
	outline := scene.Layer{
		ID:     MeshOutlineLayer,
		Type:   scene.LayerLine,
		Source: MeshSource,
		Paint: map[string]any{
			"line-color":   "#666",
			"line-width":   0.5,
			"line-opacity": 0.3,
		},
	}
	if err := s.engine.AddLayer(outline, ""); err != nil {
		return eris.Wrap(err, "mapview: add mesh outline")
	}

	if err := s.ApplyVisualEncoding(); err != nil {
		return err
	}
	s.bindMeshHandlers()

	metrics.Rebuilds.WithLabelValues("mesh").Inc()
	zap.L().Debug("mapview: mesh layers rebuilt",
		zap.Int("features", len(s.data.Mesh.Features)),
		zap.Int("cluster_count", s.state.ClusterCount),
	)
	return nil
}

// ApplyVisualEncoding updates the cluster filter and the fill color for the
// current display mode without touching sources.
func (s *Synchronizer) ApplyVisualEncoding() error {
	if !s.engine.HasLayer(MeshFillLayer) || s.data.Config == nil {
		return nil
	}

	filter := VisibleFilter(s.state.Visible)
	for _, id := range []string{MeshFillLayer, MeshOutlineLayer} {
		if !s.engine.HasLayer(id) {
			continue
		}
		if err := s.engine.SetFilter(id, filter); err != nil {
			return eris.Wrapf(err, "mapview: filter %s", id)
		}
	}

	color := FillColor(s.state.DisplayMode, s.data.Config, s.palette)
	if err := s.engine.SetPaintProperty(MeshFillLayer, "fill-color", color); err != nil {
		return eris.Wrap(err, "mapview: fill color")
	}
	metrics.Rebuilds.WithLabelValues("encoding").Inc()
	return nil
}

// SetOpacity pushes the state opacity to the mesh fill layer.
func (s *Synchronizer) SetOpacity() error {
	if !s.engine.HasLayer(MeshFillLayer) {
		return nil
	}
	return eris.Wrap(s.engine.SetPaintProperty(MeshFillLayer, "fill-opacity", s.state.Opacity), "mapview: fill opacity")
}

func (s *Synchronizer) removeLayers(ids ...string) error {
	for _, id := range ids {
		if !s.engine.HasLayer(id) {
			continue
		}
		if err := s.engine.RemoveLayer(id); err != nil {
			return eris.Wrapf(err, "mapview: remove layer %s", id)
		}
	}
	return nil
}

func (s *Synchronizer) removeSource(id string) error {
	if !s.engine.HasSource(id) {
		return nil
	}
	return eris.Wrapf(s.engine.RemoveSource(id), "mapview: remove source %s", id)
}
