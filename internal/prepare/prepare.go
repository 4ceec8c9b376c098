// Package prepare turns clustered mesh GeoJSON into the web_data files the
// map serves: a simplified mesh collection and the cluster metadata.
package prepare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urban-mesh/clustermap/internal/loader"
	"github.com/urban-mesh/clustermap/internal/model"
)

// DefaultTolerance is the Douglas-Peucker threshold in degrees.
const DefaultTolerance = 0.0001

// Options configures a preparation run.
type Options struct {
	// InputDir holds k{NN}/mesh_with_clusters.geojson per cluster count.
	InputDir string
	// OutputDir receives web_data/.
	OutputDir     string
	ClusterCounts []int
	// Tolerance of zero means DefaultTolerance; a negative value keeps
	// geometries as they are.
	Tolerance float64
}

// Result summarizes one written cluster count.
type Result struct {
	ClusterCount int
	Meshes       int
	Clusters     []model.Cluster
}

// InputPath is the clustered mesh file for k under dir.
func InputPath(dir string, k int) string {
	return filepath.Join(dir, fmt.Sprintf("k%02d", k), "mesh_with_clusters.geojson")
}

// DeriveConfig groups features by cluster id and names each cluster.
func DeriveConfig(fc *geojson.FeatureCollection, k int) (*model.ClusterConfig, error) {
	profiles := make(map[int]*Profile)
	for i, f := range fc.Features {
		id, ok := model.ClusterID(f.Properties)
		if !ok {
			return nil, eris.Errorf("prepare: feature %d has no cluster id", i)
		}
		p := profiles[id]
		if p == nil {
			p = &Profile{}
			profiles[id] = p
		}
		p.Add(f.Properties)
	}

	ids := make([]int, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	cfg := &model.ClusterConfig{ClusterCount: k, TotalMeshes: len(fc.Features)}
	for _, id := range ids {
		p := profiles[id]
		name, color := Name(*p)
		types := make(map[string]int, len(p.Usage))
		for c, n := range p.Usage {
			types[c] = int(n)
		}
		cfg.Clusters = append(cfg.Clusters, model.Cluster{
			ID:             id,
			Name:           name,
			Color:          color,
			Count:          p.Meshes,
			AvgBuildings:   p.AvgBuildings(),
			AvgRestaurants: p.AvgRestaurants(),
			BuildingTypes:  types,
		})
	}
	return cfg, nil
}

// Simplify reduces every feature geometry in place.
func Simplify(fc *geojson.FeatureCollection, tolerance float64) {
	if tolerance <= 0 {
		return
	}
	s := simplify.DouglasPeucker(tolerance)
	for _, f := range fc.Features {
		f.Geometry = s.Simplify(f.Geometry)
	}
}

// Run prepares every configured cluster count. Missing inputs are skipped.
func Run(ctx context.Context, opts Options) ([]Result, error) {
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	outDir := filepath.Join(opts.OutputDir, loader.DataDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "prepare: create output dir")
	}

	results := make([]*Result, len(opts.ClusterCounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, k := range opts.ClusterCounts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := prepareOne(opts, k)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Result
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func prepareOne(opts Options, k int) (*Result, error) {
	in := InputPath(opts.InputDir, k)
	raw, err := os.ReadFile(in) //nolint:gosec
	if os.IsNotExist(err) {
		zap.L().Warn("prepare: input missing, skipping", zap.String("path", in), zap.Int("k", k))
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "prepare: read %s", in)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "prepare: parse %s", in)
	}

	cfg, err := DeriveConfig(fc, k)
	if err != nil {
		return nil, err
	}
	Simplify(fc, opts.Tolerance)

	meshOut, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "prepare: encode mesh")
	}
	if err := writeFile(opts.OutputDir, loader.MeshPath(k), meshOut); err != nil {
		return nil, err
	}
	cfgOut, err := encodeIndented(cfg)
	if err != nil {
		return nil, err
	}
	if err := writeFile(opts.OutputDir, loader.ConfigPath(k), cfgOut); err != nil {
		return nil, err
	}

	for _, c := range cfg.Clusters {
		zap.L().Info("prepare: cluster named",
			zap.Int("k", k),
			zap.Int("id", c.ID),
			zap.String("name", c.Name),
			zap.String("color", c.Color),
		)
	}
	zap.L().Info("prepare: wrote cluster count",
		zap.Int("k", k),
		zap.Int("meshes", cfg.TotalMeshes),
		zap.Int("mesh_bytes_in", len(raw)),
		zap.Int("mesh_bytes_out", len(meshOut)),
	)
	return &Result{ClusterCount: k, Meshes: cfg.TotalMeshes, Clusters: cfg.Clusters}, nil
}

func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "prepare: encode config")
	}
	return buf.Bytes(), nil
}

func writeFile(root, rel string, data []byte) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return eris.Wrapf(err, "prepare: write %s", path)
	}
	return nil
}
