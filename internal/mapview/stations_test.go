package mapview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-mesh/clustermap/internal/model"
	"github.com/urban-mesh/clustermap/internal/palette"
	"github.com/urban-mesh/clustermap/internal/scene"
)

func TestRebuildStationLayers_NotLoadedIsNoop(t *testing.T) {
	t.Parallel()
	h := newHarness(t, false)
	h.state.ShowStations = true

	require.NoError(t, h.sync.RebuildStationLayers())
	assert.False(t, h.graph.HasLayer(StationLayer))
	assert.Zero(t, h.graph.PendingOnce(scene.EventIdle), "station rebuilds are not deferred")
}

func TestRebuildStationLayers_ShowAndHide(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.state.ShowStations = true

	require.NoError(t, h.sync.RebuildStationLayers())
	require.NoError(t, h.sync.RebuildStationLayers())
	assert.True(t, h.graph.HasLayer(StationLayer))
	assert.True(t, h.graph.HasLayer(StationLabelLayer))
	assert.Equal(t, 1, h.graph.HandlerCount(scene.EventClick, StationLayer))

	h.state.ShowStations = false
	require.NoError(t, h.sync.RebuildStationLayers())
	assert.False(t, h.graph.HasLayer(StationLayer))
	assert.False(t, h.graph.HasLayer(StationLabelLayer))
	assert.False(t, h.graph.HasSource(StationSource))
}

func TestRebuildStationLayers_StyleCarriesGlyphs(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.state.ShowStations = true
	require.NoError(t, h.sync.RebuildStationLayers())

	data, err := json.Marshal(h.graph.Style())
	require.NoError(t, err)
	var doc struct {
		Glyphs string `json:"glyphs"`
		Layers []struct {
			ID     string         `json:"id"`
			Type   string         `json:"type"`
			Layout map[string]any `json:"layout"`
		} `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	symbols := 0
	for _, l := range doc.Layers {
		if l.Type != "symbol" {
			continue
		}
		symbols++
		assert.Equal(t, []any{scene.LabelFont}, l.Layout["text-font"], "layer %s", l.ID)
	}
	require.Equal(t, 1, symbols)
	assert.Contains(t, doc.Glyphs, "{fontstack}")
	assert.Contains(t, doc.Glyphs, "{range}")
}

func TestRebuildStationLayers_LargeBandColor(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.state.ShowStations = true
	require.NoError(t, h.sync.RebuildStationLayers())

	rendered, err := h.graph.RenderedFeatures(StationLayer)
	require.NoError(t, err)
	require.Len(t, rendered, 3)

	byName := map[string]map[string]any{}
	for _, r := range rendered {
		byName[model.Text(r.Feature.Properties, model.PropStation)] = r.Paint
	}
	tenjin := byName["天神"]
	assert.Equal(t, "#4d0018", tenjin["circle-color"])
	assert.Equal(t, palette.Default().StationColor.Step(15000), tenjin["circle-color"])
	assert.InDelta(t, palette.Default().Radius(15000), tenjin["circle-radius"], 1e-9)
	assert.Equal(t, "#ffffcc", byName["桜坂"]["circle-color"])
}

func TestRebuildStationLayers_ScaleFilter(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.state.ShowStations = true
	h.state.ScaleFilters.Set(model.BandSmall, false)
	h.state.ScaleFilters.Set(model.BandLarge, false)
	require.NoError(t, h.sync.RebuildStationLayers())

	rendered, err := h.graph.RenderedFeatures(StationLayer)
	require.NoError(t, err)
	require.Len(t, rendered, 1)
	assert.Equal(t, "薬院", rendered[0].Feature.Properties["駅名"])
}

func TestRebuildBuffers_OnePerStationBeneathMesh(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	require.NoError(t, h.sync.RebuildMeshLayers())

	h.state.ShowStations = true
	h.state.Buffer.Enabled = true
	h.state.Buffer.DistanceMeters = 500
	require.NoError(t, h.sync.RebuildStationLayers())

	src, ok := h.graph.Source(BufferSource)
	require.True(t, ok)
	assert.Len(t, src.Data.Features, 3)

	ids := h.graph.LayerIDs()
	assert.Less(t, indexOf(ids, BufferLayer), indexOf(ids, MeshFillLayer))

	h.state.ShowStations = false
	require.NoError(t, h.sync.RebuildStationLayers())
	assert.False(t, h.graph.HasLayer(BufferLayer), "hiding stations removes buffers")
	assert.False(t, h.graph.HasSource(BufferSource))
}

func TestRebuildBuffers_Disabled(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.state.ShowStations = true
	h.state.Buffer.Enabled = true
	require.NoError(t, h.sync.RebuildStationLayers())
	require.True(t, h.graph.HasLayer(BufferLayer))

	h.state.Buffer.Enabled = false
	require.NoError(t, h.sync.RebuildBuffers())
	assert.False(t, h.graph.HasLayer(BufferLayer))
}

func TestRebuildBuffers_NoStationData(t *testing.T) {
	t.Parallel()
	h := newHarness(t, true)
	h.data.Stations = nil
	h.state.ShowStations = true
	h.state.Buffer.Enabled = true

	require.NoError(t, h.sync.RebuildBuffers())
	assert.False(t, h.graph.HasLayer(BufferLayer))
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
