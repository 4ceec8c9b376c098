// Package loader fetches the pre-computed clustering results and station
// data that drive the map.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urban-mesh/clustermap/internal/fetcher"
	"github.com/urban-mesh/clustermap/internal/metrics"
	"github.com/urban-mesh/clustermap/internal/model"
)

// Data paths, relative to the fetcher root.
const (
	DataDir      = "web_data"
	StationsPath = DataDir + "/stations.geojson"
)

// MeshPath is the mesh feature collection for a cluster count.
func MeshPath(k int) string {
	return fmt.Sprintf("%s/mesh_clusters_k%d.geojson", DataDir, k)
}

// ConfigPath is the cluster metadata for a cluster count.
func ConfigPath(k int) string {
	return fmt.Sprintf("%s/cluster_config_k%d.json", DataDir, k)
}

// ClusterData is one complete cluster-count dataset.
type ClusterData struct {
	ClusterCount int
	Mesh         *geojson.FeatureCollection
	Config       *model.ClusterConfig
}

// Loader reads datasets through a Fetcher.
type Loader struct {
	fetcher fetcher.Fetcher
}

// New creates a Loader.
func New(f fetcher.Fetcher) *Loader {
	return &Loader{fetcher: f}
}

// LoadClusterData fetches the mesh and config for k concurrently. Either
// failure fails the whole load and no partial result is returned.
func (l *Loader) LoadClusterData(ctx context.Context, k int) (*ClusterData, error) {
	start := time.Now()
	reqID := uuid.NewString()
	log := zap.L().With(zap.String("request_id", reqID), zap.Int("cluster_count", k))

	var (
		mesh *geojson.FeatureCollection
		cfg  *model.ClusterConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mesh, err = fetcher.FetchJSON[geojson.FeatureCollection](gctx, l.fetcher, MeshPath(k))
		return eris.Wrap(err, "loader: mesh")
	})
	g.Go(func() error {
		var err error
		cfg, err = fetcher.FetchJSON[model.ClusterConfig](gctx, l.fetcher, ConfigPath(k))
		return eris.Wrap(err, "loader: cluster config")
	})
	if err := g.Wait(); err != nil {
		metrics.Loads.WithLabelValues("clusters", "error").Inc()
		log.Error("loader: cluster data load failed", zap.Error(err))
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		metrics.Loads.WithLabelValues("clusters", "error").Inc()
		log.Error("loader: invalid cluster config", zap.Error(err))
		return nil, err
	}

	metrics.Loads.WithLabelValues("clusters", "ok").Inc()
	metrics.LoadDurationMs.WithLabelValues("clusters").Observe(float64(time.Since(start).Milliseconds()))
	log.Info("loader: cluster data loaded",
		zap.Int("mesh_features", len(mesh.Features)),
		zap.Int("clusters", len(cfg.Clusters)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return &ClusterData{ClusterCount: k, Mesh: mesh, Config: cfg}, nil
}

// LoadStations fetches the station feature collection.
func (l *Loader) LoadStations(ctx context.Context) (*geojson.FeatureCollection, error) {
	start := time.Now()
	fc, err := fetcher.FetchJSON[geojson.FeatureCollection](ctx, l.fetcher, StationsPath)
	if err != nil {
		metrics.Loads.WithLabelValues("stations", "error").Inc()
		return nil, eris.Wrap(err, "loader: stations")
	}
	metrics.Loads.WithLabelValues("stations", "ok").Inc()
	metrics.LoadDurationMs.WithLabelValues("stations").Observe(float64(time.Since(start).Milliseconds()))
	zap.L().Info("loader: stations loaded", zap.Int("stations", len(fc.Features)))
	return fc, nil
}
