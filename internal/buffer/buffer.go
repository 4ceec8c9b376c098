// Package buffer builds circular proximity zones around station points.
package buffer

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/urban-mesh/clustermap/internal/model"
)

// DefaultSteps is the number of vertices on a buffer ring.
const DefaultSteps = 64

// Circle returns a geodesic circle of radiusKM around center as a closed
// polygon with steps vertices.
func Circle(center orb.Point, radiusKM float64, steps int) orb.Polygon {
	if steps < 3 {
		steps = DefaultSteps
	}
	meters := radiusKM * 1000
	ring := make(orb.Ring, 0, steps+1)
	for i := 0; i < steps; i++ {
		bearing := -360 * float64(i) / float64(steps)
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, meters))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// MetersToKM converts a configured buffer distance to the primitive's unit.
func MetersToKM(m int) float64 {
	return float64(m) / 1000
}

// Generate builds one buffer polygon per station point. Non-point features
// are skipped; callers pass normalized stations.
func Generate(stations *geojson.FeatureCollection, distanceMeters int) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if stations == nil || distanceMeters <= 0 {
		return out
	}
	km := MetersToKM(distanceMeters)
	for _, f := range stations.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		bf := geojson.NewFeature(Circle(pt, km, DefaultSteps))
		bf.Properties = geojson.Properties{
			model.PropStation: f.Properties[model.PropStation],
			"distance_m":      distanceMeters,
		}
		out.Append(bf)
	}
	return out
}
