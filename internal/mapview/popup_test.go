package mapview

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-mesh/clustermap/internal/scene"
)

func TestMeshPopup(t *testing.T) {
	t.Parallel()
	mesh, cfg := meshFixture()

	html, err := MeshPopup(mesh.Features[0].Properties, cfg)
	require.NoError(t, err)
	assert.Contains(t, html, "住宅地域")
	assert.Contains(t, html, "<strong>住宅:</strong> 50 (50.0%)")
	assert.Contains(t, html, "<strong>共同住宅:</strong> 20 (20.0%)")
	assert.NotContains(t, html, "宿泊施設", "zero categories are omitted")

	html, err = MeshPopup(mesh.Features[1].Properties, nil)
	require.NoError(t, err)
	assert.NotContains(t, html, "クラスター名")
	assert.NotContains(t, html, "建物用途")
}

func TestMeshPopup_EscapesValues(t *testing.T) {
	t.Parallel()
	html, err := MeshPopup(geojson.Properties{"cluster": "<b>x</b>"}, nil)
	require.NoError(t, err)
	assert.NotContains(t, html, "<b>x</b>")
}

func TestStationPopup_ThousandsSeparator(t *testing.T) {
	t.Parallel()
	html, err := StationPopup(stationFixture().Features[0].Properties)
	require.NoError(t, err)
	assert.Contains(t, html, "<h3>天神</h3>")
	assert.Contains(t, html, "15,000人")
	assert.Contains(t, html, "七隈線")
}

func TestInteraction_ClickAndHover(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	require.NoError(t, h.sync.RebuildMeshLayers())

	at := orb.Point{130.31, 33.51}
	n := h.graph.Fire(scene.EventClick, MeshFillLayer, scene.Event{LngLat: at, Feature: h.data.Mesh.Features[0]})
	assert.Equal(t, 1, n)
	popup, ok := h.graph.LastPopup()
	require.True(t, ok)
	assert.Equal(t, at, popup.LngLat)
	assert.Contains(t, popup.HTML, "住宅地域")

	h.graph.Fire(scene.EventMouseEnter, MeshFillLayer, scene.Event{})
	assert.Equal(t, "pointer", h.graph.Cursor())
	h.graph.Fire(scene.EventMouseLeave, MeshFillLayer, scene.Event{})
	assert.Equal(t, "", h.graph.Cursor())
}

func TestInteraction_StationClick(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.state.ShowStations = true
	require.NoError(t, h.sync.RebuildStationLayers())

	h.graph.Fire(scene.EventClick, StationLayer, scene.Event{Feature: h.data.Stations.Features[0]})
	popup, ok := h.graph.LastPopup()
	require.True(t, ok)
	assert.Contains(t, popup.HTML, "15,000人")
}
