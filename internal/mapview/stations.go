package mapview

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/buffer"
	"github.com/urban-mesh/clustermap/internal/expr"
	"github.com/urban-mesh/clustermap/internal/metrics"
	"github.com/urban-mesh/clustermap/internal/model"
	"github.com/urban-mesh/clustermap/internal/scene"
	"github.com/urban-mesh/clustermap/internal/station"
)

// RebuildStationLayers recreates the station circles and labels from the
// band-filtered station set, then refreshes buffers. Unlike the mesh rebuild
// it is not deferred when the style is not ready.
func (s *Synchronizer) RebuildStationLayers() error {
	if !s.engine.IsStyleLoaded() {
		return nil
	}
	if s.data.Stations == nil {
		zap.L().Debug("mapview: no station data yet")
		return nil
	}

	if err := s.removeLayers(StationLayer, StationLabelLayer); err != nil {
		return err
	}
	if err := s.removeSource(StationSource); err != nil {
		return err
	}
	if !s.state.ShowStations {
		return s.RebuildBuffers()
	}

	visible := station.Visible(s.data.Stations, s.state.ScaleFilters)
	if err := s.engine.AddSource(StationSource, scene.GeoJSONSource(visible)); err != nil {
		return eris.Wrap(err, "mapview: add station source")
	}

	passengers := numeric(model.PropPassengers)
	circles := scene.Layer{
		ID:     StationLayer,
		Type:   scene.LayerCircle,
		Source: StationSource,
		Paint: map[string]any{
			"circle-radius":       s.palette.RadiusExpr(passengers),
			"circle-color":        s.palette.StationColor.StepExpr(passengers),
			"circle-opacity":      0.8,
			"circle-stroke-width": 2,
			"circle-stroke-color": "#ffffff",
		},
	}
	if err := s.engine.AddLayer(circles, ""); err != nil {
		return eris.Wrap(err, "mapview: add station layer")
	}
	labels := scene.Layer{
		ID:     StationLabelLayer,
		Type:   scene.LayerSymbol,
		Source: StationSource,
		Layout: map[string]any{
			"text-field":  expr.Get(model.PropStation),
			"text-font":   []string{scene.LabelFont},
			"text-size":   12,
			"text-anchor": "top",
			"text-offset": []float64{0, 1},
		},
		Paint: map[string]any{
			"text-color":      "#000000",
			"text-halo-color": "#ffffff",
			"text-halo-width": 2,
		},
	}
	if err := s.engine.AddLayer(labels, ""); err != nil {
		return eris.Wrap(err, "mapview: add station labels")
	}

	s.bindStationHandlers()
	metrics.Rebuilds.WithLabelValues("stations").Inc()
	zap.L().Debug("mapview: station layers rebuilt", zap.Int("visible", len(visible.Features)))

	return s.RebuildBuffers()
}

// RebuildBuffers replaces the buffer layer. Buffers exist only while they are
// enabled, stations are shown and station data is loaded.
func (s *Synchronizer) RebuildBuffers() error {
	if !s.engine.IsStyleLoaded() {
		return nil
	}
	if err := s.removeLayers(BufferLayer); err != nil {
		return err
	}
	if err := s.removeSource(BufferSource); err != nil {
		return err
	}
	if !s.state.Buffer.Enabled || !s.state.ShowStations || s.data.Stations == nil {
		return nil
	}

	visible := station.Visible(s.data.Stations, s.state.ScaleFilters)
	zones := buffer.Generate(visible, s.state.Buffer.DistanceMeters)
	if len(zones.Features) == 0 {
		return nil
	}

	if err := s.engine.AddSource(BufferSource, scene.GeoJSONSource(zones)); err != nil {
		return eris.Wrap(err, "mapview: add buffer source")
	}
	layer := scene.Layer{
		ID:     BufferLayer,
		Type:   scene.LayerFill,
		Source: BufferSource,
		Paint: map[string]any{
			"fill-color":   s.palette.BufferFill,
			"fill-opacity": 0.2,
		},
	}
	before := ""
	if s.engine.HasLayer(MeshFillLayer) {
		before = MeshFillLayer
	}
	if err := s.engine.AddLayer(layer, before); err != nil {
		return eris.Wrap(err, "mapview: add buffer layer")
	}

	metrics.Buffers.Add(float64(len(zones.Features)))
	metrics.Rebuilds.WithLabelValues("buffers").Inc()
	zap.L().Debug("mapview: buffers rebuilt",
		zap.Int("zones", len(zones.Features)),
		zap.Int("distance_m", s.state.Buffer.DistanceMeters),
	)
	return nil
}
