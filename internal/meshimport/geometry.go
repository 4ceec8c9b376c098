package meshimport

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ToGeom converts a shapefile shape to a go-geom geometry. Unsupported or
// empty shapes yield nil.
func ToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		return multiLineString(s.NumParts, s.Parts, s.Points)
	case *shp.Polygon:
		return multiPolygon(s.NumParts, s.Parts, s.Points)
	default:
		return nil
	}
}

// partBounds returns the [start, end) point range of part i.
func partBounds(i, numParts int32, parts []int32, n int) (int32, int32) {
	start := parts[i]
	end := int32(n)
	if i+1 < numParts {
		end = parts[i+1]
	}
	return start, end
}

func multiLineString(numParts int32, parts []int32, pts []shp.Point) geom.T {
	if numParts == 0 || len(pts) == 0 {
		return nil
	}
	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < numParts; i++ {
		start, end := partBounds(i, numParts, parts, len(pts))
		ls := geom.NewLineStringFlat(geom.XY, flatCoords(pts[start:end]))
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("meshimport: skipping malformed line part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// multiPolygon treats every ring as its own polygon. Mesh cells are simple
// squares, so holes are not reconstructed.
func multiPolygon(numParts int32, parts []int32, pts []shp.Point) geom.T {
	if numParts == 0 || len(pts) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < numParts; i++ {
		start, end := partBounds(i, numParts, parts, len(pts))
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flatCoords(pts[start:end]))); err != nil {
			zap.L().Debug("meshimport: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("meshimport: skipping malformed polygon", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func flatCoords(pts []shp.Point) []float64 {
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}
