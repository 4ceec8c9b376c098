// Package server exposes the map controller over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/app"
	"github.com/urban-mesh/clustermap/internal/loader"
	"github.com/urban-mesh/clustermap/internal/metrics"
	"github.com/urban-mesh/clustermap/internal/model"
)

// Options configures the HTTP surface.
type Options struct {
	// DataDir, when set, is served under /web_data/.
	DataDir        string
	AllowedOrigins []string
	// Tiles, when set, serves basemap tiles under /tiles/{z}/{x}/{y}.png.
	Tiles http.Handler
}

// Server routes requests to a Controller.
type Server struct {
	ctl  *app.Controller
	opts Options
}

// New creates a server.
func New(ctl *app.Controller, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{ctl: ctl, opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	if s.opts.DataDir != "" {
		dir := filepath.Join(s.opts.DataDir, loader.DataDir)
		r.Handle("/"+loader.DataDir+"/*", http.StripPrefix("/"+loader.DataDir+"/", http.FileServer(http.Dir(dir))))
	}

	if s.opts.Tiles != nil {
		r.Get("/tiles/{z}/{x}/{y}", s.opts.Tiles.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/scene", s.handleScene)
		r.Get("/panels", s.handlePanels)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/layers/{layer}/features", s.handleFeatures)
		r.Post("/layers/{layer}/click", s.handleClick)
		r.Post("/layers/{layer}/hover", s.handleHover)
		r.Post("/controls/reset-view", s.handleResetView)
		r.Post("/controls/{control}", s.handleControl)
		r.Post("/clusters/{id}", s.handleCluster)
	})
	return r
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.State())
}

func (s *Server) handleScene(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Scene())
}

func (s *Server) handlePanels(w http.ResponseWriter, _ *http.Request) {
	p, err := s.ctl.Panels()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Statistics())
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	rendered, err := s.ctl.RenderedFeatures(chi.URLParam(r, "layer"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

type clickRequest struct {
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
	Feature int     `json:"feature"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(app.ErrInvalidInput, "invalid request body"))
		return
	}
	p, err := s.ctl.Click(chi.URLParam(r, "layer"), req.Feature, orb.Point{req.Lng, req.Lat})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enter bool `json:"enter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(app.ErrInvalidInput, "invalid request body"))
		return
	}
	cursor := s.ctl.Hover(chi.URLParam(r, "layer"), req.Enter)
	writeJSON(w, http.StatusOK, map[string]string{"cursor": cursor})
}

func (s *Server) handleResetView(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctl.ResetView(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.State())
}

type controlRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(app.ErrInvalidInput, "invalid request body"))
		return
	}

	control := chi.URLParam(r, "control")
	var err error
	switch control {
	case "cluster-count":
		var k int
		if err = decodeValue(req.Value, &k); err == nil {
			err = s.ctl.SelectClusterCount(r.Context(), k)
		}
	case "display-mode":
		var mode string
		if err = decodeValue(req.Value, &mode); err == nil {
			err = s.ctl.SelectDisplayMode(mode)
		}
	case "opacity":
		var pct int
		if err = decodeValue(req.Value, &pct); err == nil {
			err = s.ctl.SetOpacityPercent(pct)
		}
	case "show-stations":
		var on bool
		if err = decodeValue(req.Value, &on); err == nil {
			err = s.ctl.ShowStations(on)
		}
	case "scale-small", "scale-medium", "scale-large":
		var on bool
		if err = decodeValue(req.Value, &on); err == nil {
			err = s.ctl.SetScaleFilter(model.Band(control[len("scale-"):]), on)
		}
	case "buffer-enable":
		var on bool
		if err = decodeValue(req.Value, &on); err == nil {
			err = s.ctl.EnableBuffer(on)
		}
	case "buffer-distance":
		var m int
		if err = decodeValue(req.Value, &m); err == nil {
			err = s.ctl.SetBufferDistance(m)
		}
	default:
		err = eris.Wrapf(app.ErrNotFound, "control %q", control)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.State())
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, eris.Wrap(app.ErrInvalidInput, "cluster id must be an integer"))
		return
	}
	var req struct {
		Checked bool `json:"checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, eris.Wrap(app.ErrInvalidInput, "invalid request body"))
		return
	}
	if err := s.ctl.ToggleCluster(id, req.Checked); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":      s.ctl.State(),
		"statistics": s.ctl.Statistics(),
	})
}

func decodeValue(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return eris.Wrap(app.ErrInvalidInput, "value is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrapf(app.ErrInvalidInput, "invalid value %s", string(raw))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, app.ErrInvalidInput):
		status = http.StatusBadRequest
	case eris.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
	case eris.Is(err, app.ErrStaleLoad):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("server: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
