package basemap

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/urban-mesh/clustermap/internal/metrics"
)

// MaxZoom is the deepest zoom level the upstream serves.
const MaxZoom = 18

// ErrInvalidTile is returned for coordinates outside the XYZ grid.
var ErrInvalidTile = eris.New("basemap: invalid tile coordinates")

// ProxyOptions configures a Proxy.
type ProxyOptions struct {
	// Upstream is an XYZ template with {z}, {x} and {y} placeholders.
	Upstream  string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is upstream requests per second; zero means 10.
	RateLimit float64
}

// Proxy fetches tiles from the upstream template and caches them.
type Proxy struct {
	opts    ProxyOptions
	client  *http.Client
	limiter *rate.Limiter
	cache   *Cache
}

// NewProxy creates a proxy. A nil cache disables caching.
func NewProxy(opts ProxyOptions, cache *Cache) (*Proxy, error) {
	for _, ph := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(opts.Upstream, ph) {
			return nil, eris.Errorf("basemap: upstream %q lacks %s", opts.Upstream, ph)
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "clustermap/1.0"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	return &Proxy{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1),
		cache:   cache,
	}, nil
}

// Validate checks that k lies on the XYZ grid.
func Validate(k TileKey) error {
	if k.Z < 0 || k.Z > MaxZoom {
		return eris.Wrapf(ErrInvalidTile, "zoom %d", k.Z)
	}
	n := 1 << k.Z
	if k.X < 0 || k.X >= n || k.Y < 0 || k.Y >= n {
		return eris.Wrapf(ErrInvalidTile, "%d/%d/%d", k.Z, k.X, k.Y)
	}
	return nil
}

// URL renders the upstream address of k.
func (p *Proxy) URL(k TileKey) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(k.Z),
		"{x}", strconv.Itoa(k.X),
		"{y}", strconv.Itoa(k.Y),
	).Replace(p.opts.Upstream)
}

// Fetch returns the tile from cache or upstream.
func (p *Proxy) Fetch(ctx context.Context, k TileKey) ([]byte, error) {
	if err := Validate(k); err != nil {
		return nil, err
	}
	if p.cache != nil {
		if data := p.cache.Get(k); data != nil {
			metrics.BasemapTiles.WithLabelValues("hit").Inc()
			return data, nil
		}
	}

	data, err := p.fetchUpstream(ctx, k)
	if err != nil {
		metrics.BasemapTiles.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.BasemapTiles.WithLabelValues("miss").Inc()
	if p.cache != nil {
		p.cache.Put(k, data)
	}
	return data, nil
}

func (p *Proxy) fetchUpstream(ctx context.Context, k TileKey) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "basemap: rate limiter")
	}

	u := p.URL(k)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: create request")
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "basemap: fetch %s", u)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("basemap: upstream returned %d for %s", resp.StatusCode, u)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "basemap: read body")
	}

	zap.L().Debug("basemap: fetched tile", zap.String("url", u), zap.Int("bytes", len(data)))
	return data, nil
}

// ServeHTTP serves /{z}/{x}/{y}.png under a chi route.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	k, err := parseKey(chi.URLParam(r, "z"), chi.URLParam(r, "x"), strings.TrimSuffix(chi.URLParam(r, "y"), ".png"))
	if err != nil {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	data, err := p.Fetch(r.Context(), k)
	if err != nil {
		if eris.Is(err, ErrInvalidTile) {
			http.Error(w, "invalid tile path", http.StatusBadRequest)
			return
		}
		zap.L().Error("basemap tile fetch failed", zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func parseKey(zs, xs, ys string) (TileKey, error) {
	z, err := strconv.Atoi(zs)
	if err != nil {
		return TileKey{}, err
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return TileKey{}, err
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return TileKey{}, err
	}
	return TileKey{Z: z, X: x, Y: y}, nil
}
