package meshimport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(x, y float64) []shp.Point {
	return []shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + 0.01},
		{X: x + 0.01, Y: y + 0.01},
		{X: x + 0.01, Y: y},
		{X: x, Y: y},
	}
}

func TestToGeom_Point(t *testing.T) {
	g := ToGeom(&shp.Point{X: 130.4, Y: 33.59})
	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{130.4, 33.59}, p.FlatCoords())
}

func TestToGeom_Polygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points:   square(130.4, 33.5),
	}
	mp, ok := ToGeom(poly).(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, 5, mp.Polygon(0).LinearRing(0).NumCoords())
}

func TestToGeom_MultiPartPolygon(t *testing.T) {
	pts := append(square(130.4, 33.5), square(130.5, 33.6)...)
	poly := &shp.Polygon{NumParts: 2, Parts: []int32{0, 5}, Points: pts}

	mp, ok := ToGeom(poly).(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 2, mp.NumPolygons())
	assert.InDelta(t, 130.5, mp.Polygon(1).LinearRing(0).Coord(0).X(), 1e-9)
}

func TestToGeom_PolyLine(t *testing.T) {
	pl := &shp.PolyLine{
		NumParts: 1,
		Parts:    []int32{0},
		Points:   []shp.Point{{X: 130.39, Y: 33.58}, {X: 130.40, Y: 33.59}},
	}
	mls, ok := ToGeom(pl).(*geom.MultiLineString)
	require.True(t, ok)
	assert.Equal(t, 1, mls.NumLineStrings())
	assert.Equal(t, 2, mls.LineString(0).NumCoords())
}

func TestToGeom_Empty(t *testing.T) {
	assert.Nil(t, ToGeom(&shp.Polygon{}))
	assert.Nil(t, ToGeom(&shp.PolyLine{}))
	assert.Nil(t, ToGeom(&shp.Null{}))
}

func TestAttributeValue(t *testing.T) {
	assert.Nil(t, attributeValue("", true))
	assert.Equal(t, 12.0, attributeValue("12", true))
	assert.Equal(t, "12", attributeValue("12", false))
	assert.Equal(t, "abc", attributeValue("abc", true))
}

func writeMeshShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mesh.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("MESH", 12),
		shp.NumberField("TOTAL", 8),
		shp.NumberField("CLUSTER", 4),
	}))

	rows := []struct {
		mesh    string
		total   int
		cluster int
		x, y    float64
	}{
		{"50303546", 120, 2, 130.40, 33.59},
		{"50303547", 0, 0, 130.41, 33.59},
	}
	for i, r := range rows {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{square(r.x, r.y)}))
		w.Write(&poly)
		require.NoError(t, w.WriteAttribute(i, 0, r.mesh))
		require.NoError(t, w.WriteAttribute(i, 1, r.total))
		require.NoError(t, w.WriteAttribute(i, 2, r.cluster))
	}
	w.Close()
	return path
}

func TestRead_Shapefile(t *testing.T) {
	path := writeMeshShapefile(t)

	fc, err := Read(path, Options{
		Rename: map[string]string{"TOTAL": "建物総数", "CLUSTER": "cluster"},
	})
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "0", first.ID)
	assert.Equal(t, "50303546", first.Properties["MESH"])
	assert.Equal(t, 120.0, first.Properties["建物総数"])
	assert.Equal(t, 2.0, first.Properties["cluster"])
	_, ok := first.Geometry.(*geom.MultiPolygon)
	assert.True(t, ok)
}

func TestRead_FieldSubset(t *testing.T) {
	path := writeMeshShapefile(t)

	fc, err := Read(path, Options{
		Rename: map[string]string{"CLUSTER": "cluster"},
		Fields: []string{"cluster"},
	})
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Len(t, fc.Features[1].Properties, 1)
	assert.Equal(t, 0.0, fc.Features[1].Properties["cluster"])
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.shp"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meshimport: open shapefile")
}

func TestWrite_GeoJSON(t *testing.T) {
	path := writeMeshShapefile(t)
	fc, err := Read(path, Options{})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "mesh.geojson")
	require.NoError(t, Write(out, fc))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "MultiPolygon", doc.Features[0].Geometry.Type)
}

func TestOptionsDecode_ShiftJIS(t *testing.T) {
	// "駅" in Shift_JIS.
	sjis := string([]byte{0x89, 0x77})
	assert.Equal(t, "駅", Options{ShiftJIS: true}.decode(sjis))
	assert.Equal(t, sjis, Options{}.decode(sjis))
}
