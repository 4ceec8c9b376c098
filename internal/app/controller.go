// Package app wires the loader, view state, scene synchronizer and panels
// into the controls a user interacts with.
package app

import (
	"context"
	"slices"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/expr"
	"github.com/urban-mesh/clustermap/internal/loader"
	"github.com/urban-mesh/clustermap/internal/mapview"
	"github.com/urban-mesh/clustermap/internal/metrics"
	"github.com/urban-mesh/clustermap/internal/model"
	"github.com/urban-mesh/clustermap/internal/palette"
	"github.com/urban-mesh/clustermap/internal/panel"
	"github.com/urban-mesh/clustermap/internal/scene"
	"github.com/urban-mesh/clustermap/internal/view"
)

// LoadFailedMessage is shown to the user when cluster data cannot be loaded.
const LoadFailedMessage = "データの読み込みに失敗しました。"

// ErrStaleLoad is returned when a cluster load finished after a newer one
// was started. Its result is discarded.
var ErrStaleLoad = eris.New("app: stale cluster load discarded")

// Sentinel errors for rejected input and unknown layers or features.
var (
	ErrInvalidInput = eris.New("app: invalid input")
	ErrNotFound     = eris.New("app: not found")
)

// DataLoader fetches datasets.
type DataLoader interface {
	LoadClusterData(ctx context.Context, k int) (*loader.ClusterData, error)
	LoadStations(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Options configures a Controller.
type Options struct {
	ClusterCounts       []int
	DefaultClusterCount int
	Base                scene.Base
	Palette             *palette.Set
}

// Controller owns the single view state. All mutation happens under mu;
// fetches run outside it.
type Controller struct {
	mu     sync.Mutex
	loader DataLoader
	graph  *scene.Graph
	state  *view.State
	data   *mapview.Data
	sync   *mapview.Synchronizer
	pal    *palette.Set
	counts []int
	home   scene.Camera

	generation uint64
	lastErr    string
}

// New creates a controller whose scene style is not yet loaded.
func New(l DataLoader, opts Options) *Controller {
	if len(opts.ClusterCounts) == 0 {
		opts.ClusterCounts = []int{4, 5, 6, 7}
	}
	if opts.DefaultClusterCount == 0 {
		opts.DefaultClusterCount = view.DefaultClusterCount
	}
	if opts.Base.TileURL == "" {
		opts.Base = scene.DefaultBase()
	}
	if opts.Palette == nil {
		opts.Palette = palette.Default()
	}

	g := scene.NewGraph(opts.Base)
	st := view.NewState(opts.DefaultClusterCount)
	data := &mapview.Data{}
	return &Controller{
		loader: l,
		graph:  g,
		state:  st,
		data:   data,
		sync:   mapview.New(g, st, data, opts.Palette),
		pal:    opts.Palette,
		counts: slices.Clone(opts.ClusterCounts),
		home:   opts.Base.Camera,
	}
}

// Start marks the style loaded, then loads the default cluster count and the
// station data. A station failure is logged and does not fail Start.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.graph.Load()
	k := c.state.ClusterCount
	c.mu.Unlock()

	err := c.SelectClusterCount(ctx, k)
	c.LoadStations(ctx)
	return err
}

// ClusterCounts returns the supported cluster counts.
func (c *Controller) ClusterCounts() []int {
	return slices.Clone(c.counts)
}

// SelectClusterCount loads the dataset for k and swaps it in atomically. On
// failure the current state is kept and LastError is set.
func (c *Controller) SelectClusterCount(ctx context.Context, k int) error {
	if !slices.Contains(c.counts, k) {
		return eris.Wrapf(ErrInvalidInput, "cluster count %d not in %v", k, c.counts)
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	data, err := c.loader.LoadClusterData(ctx, k)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		metrics.StaleLoads.Inc()
		zap.L().Warn("app: discarding stale cluster load",
			zap.Int("cluster_count", k),
			zap.Uint64("generation", gen),
			zap.Uint64("latest", c.generation),
		)
		return ErrStaleLoad
	}
	if err != nil {
		c.lastErr = LoadFailedMessage
		return err
	}

	c.state.ClusterCount = k
	c.data.Mesh = data.Mesh
	c.data.Config = data.Config
	c.state.ResetVisible(data.Config)
	c.lastErr = ""

	return c.rebuild(c.sync.RebuildMeshLayers)
}

// LoadStations fetches station data once. Failure is non-fatal.
func (c *Controller) LoadStations(ctx context.Context) {
	fc, err := c.loader.LoadStations(ctx)
	if err != nil {
		zap.L().Warn("app: station data unavailable", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Stations = fc
	if err := c.rebuild(c.sync.RebuildStationLayers); err != nil {
		zap.L().Error("app: station rebuild failed", zap.Error(err))
	}
}

// SelectDisplayMode switches the mesh fill encoding.
func (c *Controller) SelectDisplayMode(mode string) error {
	m, err := view.ParseMode(mode)
	if err != nil {
		return eris.Wrap(ErrInvalidInput, err.Error())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.DisplayMode = m
	return c.rebuild(c.sync.ApplyVisualEncoding)
}

// SetOpacityPercent sets the mesh opacity from a 0..100 slider value.
func (c *Controller) SetOpacityPercent(pct int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.SetOpacityPercent(pct); err != nil {
		return eris.Wrap(ErrInvalidInput, err.Error())
	}
	return c.rebuild(c.sync.SetOpacity)
}

// ShowStations toggles the station layers.
func (c *Controller) ShowStations(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowStations = on
	return c.rebuild(c.sync.RebuildStationLayers)
}

// SetScaleFilter toggles one passenger band.
func (c *Controller) SetScaleFilter(band model.Band, on bool) error {
	if !slices.Contains(model.Bands, band) {
		return eris.Wrapf(ErrInvalidInput, "unknown band %q", band)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ScaleFilters.Set(band, on)
	return c.rebuild(c.sync.RebuildStationLayers)
}

// EnableBuffer toggles station buffers.
func (c *Controller) EnableBuffer(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Buffer.Enabled = on
	return c.rebuild(c.sync.RebuildBuffers)
}

// SetBufferDistance sets the buffer radius in meters.
func (c *Controller) SetBufferDistance(meters int) error {
	if meters <= 0 {
		return eris.Wrapf(ErrInvalidInput, "buffer distance %d must be positive", meters)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Buffer.DistanceMeters = meters
	return c.rebuild(c.sync.RebuildBuffers)
}

// ToggleCluster shows or hides one cluster. Only the encoding is refreshed.
func (c *Controller) ToggleCluster(id int, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data.Config.Find(id); !ok {
		return eris.Wrapf(ErrInvalidInput, "unknown cluster %d", id)
	}
	if visible {
		c.state.Visible[id] = struct{}{}
	} else {
		delete(c.state.Visible, id)
	}
	return c.rebuild(c.sync.ApplyVisualEncoding)
}

// ResetView flies home and makes every cluster visible again.
func (c *Controller) ResetView() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graph.FlyTo(c.home)
	if c.data.Config != nil {
		c.state.ResetVisible(c.data.Config)
	}
	return c.rebuild(c.sync.ApplyVisualEncoding)
}

// Click dispatches a click on the feature at index of a layer's source and
// returns the resulting popup. Features the layer filter hides cannot be
// clicked.
func (c *Controller) Click(layerID string, index int, at orb.Point) (scene.Popup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.feature(layerID, index)
	if err != nil {
		return scene.Popup{}, err
	}
	before := len(c.graph.Popups())
	c.graph.Fire(scene.EventClick, layerID, scene.Event{LngLat: at, Feature: f})
	if len(c.graph.Popups()) == before {
		return scene.Popup{}, eris.Wrapf(ErrInvalidInput, "layer %s has no click handler", layerID)
	}
	p, _ := c.graph.LastPopup()
	return p, nil
}

// Hover dispatches mouseenter or mouseleave and returns the cursor.
func (c *Controller) Hover(layerID string, enter bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	event := scene.EventMouseLeave
	if enter {
		event = scene.EventMouseEnter
	}
	c.graph.Fire(event, layerID, scene.Event{})
	return c.graph.Cursor()
}

// Scene exports the current style document.
func (c *Controller) Scene() scene.Style {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph.Style()
}

// RenderedFeatures returns the features a layer currently draws.
func (c *Controller) RenderedFeatures(layerID string) ([]scene.Rendered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.graph.HasLayer(layerID) {
		return nil, eris.Wrapf(ErrNotFound, "layer %s", layerID)
	}
	return c.graph.RenderedFeatures(layerID)
}

// State returns a copy of the view state.
func (c *Controller) State() view.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Panels renders the legend, filters and statistics from scratch.
func (c *Controller) Panels() (panel.Rendered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := panel.Render(c.state, c.data.Config, c.pal)
	if err != nil {
		return r, err
	}
	r.Notification = c.lastErr
	return r, nil
}

// Statistics returns the aggregates over visible clusters.
func (c *Controller) Statistics() panel.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return panel.Statistics(c.state, c.data.Config)
}

// LastError is the user-visible notification of the last failed load, or
// empty after a successful one.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// rebuild runs fn and lets the scene settle so deferred work runs. Callers
// hold mu.
func (c *Controller) rebuild(fn func() error) error {
	err := fn()
	c.graph.Idle()
	return err
}

func (c *Controller) feature(layerID string, index int) (*geojson.Feature, error) {
	l, ok := c.graph.Layer(layerID)
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "layer %s", layerID)
	}
	src, ok := c.graph.Source(l.Source)
	if !ok || src.Data == nil {
		return nil, eris.Wrapf(ErrNotFound, "source for layer %s", layerID)
	}
	if index < 0 || index >= len(src.Data.Features) {
		return nil, eris.Wrapf(ErrNotFound, "feature %d of layer %s", index, layerID)
	}
	f := src.Data.Features[index]
	shown, err := expr.EvalBool(l.Filter, f.Properties)
	if err != nil {
		return nil, eris.Wrapf(err, "app: filter of layer %s", layerID)
	}
	if !shown {
		return nil, eris.Wrapf(ErrNotFound, "feature %d of layer %s is filtered out", index, layerID)
	}
	return f, nil
}
