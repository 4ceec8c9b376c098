// Package meshimport converts shapefiles (mesh cells or railway stations)
// into GeoJSON feature collections.
package meshimport

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
)

// Options controls attribute decoding.
type Options struct {
	// ShiftJIS decodes attribute names and values from Shift_JIS.
	ShiftJIS bool
	// Rename maps shapefile field names to output property names.
	Rename map[string]string
	// Fields restricts output to these (renamed) properties when non-empty.
	Fields []string
}

// Read converts every record of a shapefile into a GeoJSON feature. Records
// without a usable geometry are skipped.
func Read(path string, opts Options) (*geojson.FeatureCollection, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "meshimport: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	numeric := make([]bool, len(fields))
	for i, f := range fields {
		name := opts.decode(strings.TrimRight(f.String(), "\x00"))
		if renamed, ok := opts.Rename[name]; ok {
			name = renamed
		}
		names[i] = name
		numeric[i] = f.Fieldtype == 'N' || f.Fieldtype == 'F'
	}
	keep := make(map[string]bool, len(opts.Fields))
	for _, f := range opts.Fields {
		keep[f] = true
	}

	fc := &geojson.FeatureCollection{}
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		g := ToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]interface{}, len(fields))
		for i, name := range names {
			if len(keep) > 0 && !keep[name] {
				continue
			}
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			props[name] = attributeValue(opts.decode(raw), numeric[i])
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(n),
			Geometry:   g,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("meshimport: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("meshimport: read shapefile",
		zap.String("path", path),
		zap.Int("features", len(fc.Features)),
	)
	return fc, nil
}

// Write encodes fc as GeoJSON to path.
func Write(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "meshimport: encode geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return eris.Wrapf(err, "meshimport: write %s", path)
	}
	return nil
}

func (o Options) decode(s string) string {
	if !o.ShiftJIS || s == "" {
		return s
	}
	out, err := japanese.ShiftJIS.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

func attributeValue(s string, numeric bool) interface{} {
	if s == "" {
		return nil
	}
	if numeric {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
