package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-mesh/clustermap/internal/app"
	"github.com/urban-mesh/clustermap/internal/fetcher"
	"github.com/urban-mesh/clustermap/internal/loader"
	"github.com/urban-mesh/clustermap/internal/mapview"
	"github.com/urban-mesh/clustermap/internal/view"
)

const meshJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[130.3,33.5],[130.31,33.5],[130.31,33.51],[130.3,33.5]]]},"properties":{"cluster":0,"建物総数":12,"建物_住宅":6}},
{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[130.4,33.5],[130.41,33.5],[130.41,33.51],[130.4,33.5]]]},"properties":{"cluster":1,"建物総数":0}}
]}`

const configJSON = `{"cluster_count":4,"total_meshes":1200,"clusters":[
{"id":0,"name":"住宅地域","color":"#ff0000","count":500,"avg_buildings":10,"avg_restaurants":1},
{"id":1,"name":"低密度地域","color":"#00ff00","count":700,"avg_buildings":20,"avg_restaurants":2}
]}`

const stationsJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Point","coordinates":[130.3989,33.5914]},"properties":{"駅名":"天神","乗降客数2023":15000}},
{"type":"Feature","geometry":{"type":"Point","coordinates":[130.4200,33.5897]},"properties":{"駅名":"博多","乗降客数2023":900}}
]}`

func newTestServer(t *testing.T) (*httptest.Server, *app.Controller) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, loader.DataDir), 0o755))
	files := map[string]string{
		loader.MeshPath(4):   meshJSON,
		loader.ConfigPath(4): configJSON,
		loader.StationsPath:  stationsJSON,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte(body), 0o644))
	}

	ctl := app.New(loader.New(fetcher.NewDirFetcher(root)), app.Options{
		ClusterCounts:       []int{4, 5},
		DefaultClusterCount: 4,
	})
	require.NoError(t, ctl.Start(context.Background()))

	srv := httptest.NewServer(New(ctl, Options{DataDir: root}).Handler())
	t.Cleanup(srv.Close)
	return srv, ctl
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	get(t, srv.URL+"/health")
	resp := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebData(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := get(t, srv.URL+"/web_data/cluster_config_k4.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cfg := decode[map[string]any](t, resp)
	assert.EqualValues(t, 1200, cfg["total_meshes"])
}

func TestState(t *testing.T) {
	srv, _ := newTestServer(t)
	st := decode[view.Snapshot](t, get(t, srv.URL+"/api/state"))
	assert.Equal(t, 4, st.ClusterCount)
	assert.Equal(t, []int{0, 1}, st.VisibleClusters)
	assert.Equal(t, view.ModeCluster, st.DisplayMode)
}

func TestScene(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := get(t, srv.URL+"/api/scene")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var style struct {
		Version int `json:"version"`
		Layers  []struct {
			ID string `json:"id"`
		} `json:"layers"`
		Sources map[string]json.RawMessage `json:"sources"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&style))
	assert.Equal(t, 8, style.Version)
	assert.Contains(t, style.Sources, mapview.MeshSource)
	var ids []string
	for _, l := range style.Layers {
		ids = append(ids, l.ID)
	}
	assert.Contains(t, ids, mapview.MeshFillLayer)
}

func TestControls(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		control string
		body    string
		status  int
	}{
		{"display-mode", `{"value":"住宅"}`, http.StatusOK},
		{"display-mode", `{"value":"nope"}`, http.StatusBadRequest},
		{"opacity", `{"value":50}`, http.StatusOK},
		{"opacity", `{"value":150}`, http.StatusBadRequest},
		{"opacity", `{"value":"x"}`, http.StatusBadRequest},
		{"show-stations", `{"value":true}`, http.StatusOK},
		{"scale-small", `{"value":false}`, http.StatusOK},
		{"buffer-enable", `{"value":true}`, http.StatusOK},
		{"buffer-distance", `{"value":1000}`, http.StatusOK},
		{"buffer-distance", `{"value":-1}`, http.StatusBadRequest},
		{"cluster-count", `{"value":9}`, http.StatusBadRequest},
		{"cluster-count", `{"value":5}`, http.StatusInternalServerError},
		{"unknown", `{"value":1}`, http.StatusNotFound},
		{"opacity", `{}`, http.StatusBadRequest},
		{"opacity", `not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := post(t, srv.URL+"/api/controls/"+tt.control, tt.body)
		assert.Equal(t, tt.status, resp.StatusCode, "%s %s", tt.control, tt.body)
	}

	st := decode[view.Snapshot](t, get(t, srv.URL+"/api/state"))
	assert.Equal(t, view.DisplayMode("住宅"), st.DisplayMode)
	assert.InDelta(t, 0.5, st.Opacity, 1e-9)
	assert.True(t, st.ShowStations)
	assert.False(t, st.ScaleFilters.Small)
	assert.True(t, st.Buffer.Enabled)
	assert.Equal(t, 1000, st.Buffer.DistanceMeters)
	assert.Equal(t, 4, st.ClusterCount, "failed load keeps the current count")

	panels := decode[map[string]string](t, get(t, srv.URL+"/api/panels"))
	assert.Equal(t, app.LoadFailedMessage, panels["notification"])
}

func TestLayerFeatures(t *testing.T) {
	srv, _ := newTestServer(t)
	post(t, srv.URL+"/api/controls/show-stations", `{"value":true}`)
	post(t, srv.URL+"/api/controls/buffer-enable", `{"value":true}`)

	resp := get(t, srv.URL+"/api/layers/"+mapview.BufferLayer+"/features")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, resp), 2)

	resp = get(t, srv.URL+"/api/layers/missing/features")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClusterToggle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/api/clusters/1", `{"checked":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		State      view.Snapshot `json:"state"`
		Statistics struct {
			VisibleMeshes int     `json:"visible_meshes"`
			AvgBuildings  float64 `json:"avg_buildings"`
		} `json:"statistics"`
	}](t, resp)
	assert.Equal(t, []int{0}, body.State.VisibleClusters)
	assert.Equal(t, 500, body.Statistics.VisibleMeshes)
	assert.InDelta(t, 10, body.Statistics.AvgBuildings, 1e-9)

	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/api/clusters/abc", `{"checked":true}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/api/clusters/99", `{"checked":true}`).StatusCode)

	resp = post(t, srv.URL+"/api/controls/reset-view", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{0, 1}, decode[view.Snapshot](t, resp).VisibleClusters)
}

func TestClickAndHover(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/api/layers/"+mapview.MeshFillLayer+"/click", `{"lng":130.305,"lat":33.505,"feature":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	popup := decode[map[string]any](t, resp)
	assert.Contains(t, popup["html"], "住宅地域")

	resp = post(t, srv.URL+"/api/layers/"+mapview.MeshFillLayer+"/hover", `{"enter":true}`)
	assert.Equal(t, "pointer", decode[map[string]string](t, resp)["cursor"])

	resp = post(t, srv.URL+"/api/layers/"+mapview.MeshFillLayer+"/click", `{"feature":10}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/state", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestTilesRoute(t *testing.T) {
	root := t.TempDir()
	ctl := app.New(loader.New(fetcher.NewDirFetcher(root)), app.Options{})

	tiles := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(r, "z") + "/" + chi.URLParam(r, "x") + "/" + chi.URLParam(r, "y")))
	})
	srv := httptest.NewServer(New(ctl, Options{Tiles: tiles}).Handler())
	t.Cleanup(srv.Close)

	resp := get(t, srv.URL+"/tiles/10/880/403.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "10/880/403.png", string(body))

	resp = get(t, srv.URL+"/tiles/10/880")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
