// Package station filters station points by passenger band.
package station

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/model"
	"github.com/urban-mesh/clustermap/internal/view"
)

// Classify returns the band for a passenger count.
func Classify(passengers float64) model.Band {
	switch {
	case passengers < model.MediumBandFloor:
		return model.BandSmall
	case passengers < model.LargeBandFloor:
		return model.BandMedium
	default:
		return model.BandLarge
	}
}

// Passengers reads the 2023 passenger volume of a station feature.
func Passengers(f *geojson.Feature) float64 {
	return model.Number(f.Properties, model.PropPassengers)
}

// Normalize reduces a possibly nested geometry to its first vertex.
func Normalize(g orb.Geometry) (orb.Point, bool) {
	switch v := g.(type) {
	case orb.Point:
		return v, true
	case orb.MultiPoint:
		if len(v) > 0 {
			return v[0], true
		}
	case orb.LineString:
		if len(v) > 0 {
			return v[0], true
		}
	case orb.MultiLineString:
		if len(v) > 0 && len(v[0]) > 0 {
			return v[0][0], true
		}
	case orb.Ring:
		if len(v) > 0 {
			return v[0], true
		}
	case orb.Polygon:
		if len(v) > 0 && len(v[0]) > 0 {
			return v[0][0], true
		}
	case orb.MultiPolygon:
		if len(v) > 0 && len(v[0]) > 0 && len(v[0][0]) > 0 {
			return v[0][0][0], true
		}
	}
	return orb.Point{}, false
}

// Visible returns the stations whose band is enabled, each reduced to a
// single point. Stations without a usable geometry are skipped.
func Visible(fc *geojson.FeatureCollection, filters view.ScaleFilters) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	var skipped int
	for _, f := range fc.Features {
		if !filters.Allows(Classify(Passengers(f))) {
			continue
		}
		pt, ok := Normalize(f.Geometry)
		if !ok {
			skipped++
			continue
		}
		nf := geojson.NewFeature(pt)
		nf.ID = f.ID
		nf.Properties = f.Properties
		out.Append(nf)
	}
	if skipped > 0 {
		zap.L().Debug("station: skipped features without geometry", zap.Int("skipped", skipped))
	}
	return out
}
