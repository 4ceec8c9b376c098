package main

import (
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/urban-mesh/clustermap/internal/app"
	"github.com/urban-mesh/clustermap/internal/basemap"
	"github.com/urban-mesh/clustermap/internal/config"
	"github.com/urban-mesh/clustermap/internal/fetcher"
	"github.com/urban-mesh/clustermap/internal/loader"
	"github.com/urban-mesh/clustermap/internal/scene"
)

// newFetcher reads web_data over HTTP when data.base_url is set and from
// data.dir otherwise.
func newFetcher(c *config.Config) (fetcher.Fetcher, error) {
	if c.Data.BaseURL == "" {
		return fetcher.NewDirFetcher(c.Data.Dir), nil
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		BaseURL:   c.Data.BaseURL,
		Timeout:   time.Duration(c.Data.TimeoutSecs) * time.Second,
		RateLimit: c.Data.RateLimit,
	})
}

func newController(c *config.Config) (*app.Controller, error) {
	f, err := newFetcher(c)
	if err != nil {
		return nil, err
	}
	base := scene.DefaultBase()
	if c.View.CenterLng != 0 || c.View.CenterLat != 0 {
		base.Camera.Center = orb.Point{c.View.CenterLng, c.View.CenterLat}
	}
	if c.View.Zoom > 0 {
		base.Camera.Zoom = c.View.Zoom
	}
	if c.View.GlyphsURL != "" {
		base.Glyphs = c.View.GlyphsURL
	}
	if c.Basemap.Proxy {
		base.TileURL = proxiedTileURL(c.Basemap.PublicURL)
	}
	return app.New(loader.New(f), app.Options{
		ClusterCounts:       c.View.ClusterCounts,
		DefaultClusterCount: c.View.DefaultClusterCount,
		Base:                base,
	}), nil
}

// proxiedTileURL is the tile template served by this process.
func proxiedTileURL(publicURL string) string {
	return strings.TrimSuffix(publicURL, "/") + "/tiles/{z}/{x}/{y}.png"
}

// newBasemapProxy returns nil when proxying is off.
func newBasemapProxy(c *config.Config) (*basemap.Proxy, error) {
	if !c.Basemap.Proxy {
		return nil, nil
	}
	return basemap.NewProxy(basemap.ProxyOptions{
		Upstream:  c.Basemap.Upstream,
		RateLimit: c.Basemap.RateLimit,
	}, basemap.NewCache(c.Basemap.CacheEntries, time.Duration(c.Basemap.CacheTTLMins)*time.Minute))
}
