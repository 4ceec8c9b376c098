// Package panel renders the legend, cluster filter and statistics panels.
// Every render starts from scratch from the view state and cluster metadata.
package panel

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/urban-mesh/clustermap/internal/model"
	"github.com/urban-mesh/clustermap/internal/palette"
	"github.com/urban-mesh/clustermap/internal/view"
)

// LegendItem is one swatch of a legend section.
type LegendItem struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// LegendSection is a titled list of swatches.
type LegendSection struct {
	Title string       `json:"title"`
	Round bool         `json:"round,omitempty"`
	Items []LegendItem `json:"items"`
}

// LegendSections returns the legend for the current display mode, plus the
// station legend when stations are shown.
func LegendSections(st *view.State, cfg *model.ClusterConfig, pal *palette.Set) []LegendSection {
	var out []LegendSection
	switch st.DisplayMode {
	case view.ModeCluster:
		if cfg != nil {
			sec := LegendSection{Title: "クラスター凡例"}
			for _, c := range cfg.Clusters {
				sec.Items = append(sec.Items, LegendItem{Color: c.Color, Label: c.Name})
			}
			out = append(out, sec)
		}
	case view.ModeDensity:
		out = append(out, rampSection(pal.Density, pal.Density.Title))
	case view.ModeBuildings:
		out = append(out, rampSection(pal.Buildings, pal.Buildings.Title))
	default:
		if category, ok := st.DisplayMode.UsageCategory(); ok {
			out = append(out, rampSection(pal.UsageRatio, category+"（"+pal.UsageRatio.Title+"）"))
		}
	}
	if st.ShowStations {
		sec := rampSection(pal.StationColor, pal.StationColor.Title)
		sec.Round = true
		out = append(out, sec)
	}
	return out
}

func rampSection(r palette.Ramp, title string) LegendSection {
	sec := LegendSection{Title: title, Items: make([]LegendItem, 0, len(r.Stops))}
	for _, s := range r.Stops {
		sec.Items = append(sec.Items, LegendItem{Color: s.Color, Label: s.Label})
	}
	return sec
}

// FilterItem is one cluster checkbox.
type FilterItem struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Count   int    `json:"count"`
	Checked bool   `json:"checked"`
}

// ElementID is the checkbox element id.
func (f FilterItem) ElementID() string {
	return "cluster-" + strconv.Itoa(f.ID)
}

// ClusterFilters returns one checkbox per configured cluster, checked when
// the cluster is visible.
func ClusterFilters(st *view.State, cfg *model.ClusterConfig) []FilterItem {
	if cfg == nil {
		return nil
	}
	out := make([]FilterItem, 0, len(cfg.Clusters))
	for _, c := range cfg.Clusters {
		out = append(out, FilterItem{
			ID:      c.ID,
			Name:    c.Name,
			Color:   c.Color,
			Count:   c.Count,
			Checked: st.Visible.Has(c.ID),
		})
	}
	return out
}

// Stats summarizes the visible clusters.
type Stats struct {
	TotalMeshes    int     `json:"total_meshes"`
	VisibleMeshes  int     `json:"visible_meshes"`
	TotalBuildings float64 `json:"total_buildings"`
	AvgBuildings   float64 `json:"avg_buildings"`
	AvgRestaurants float64 `json:"avg_restaurants"`
}

// Statistics aggregates over visible clusters only. Averages are weighted by
// cluster mesh count; with nothing visible every aggregate is zero.
func Statistics(st *view.State, cfg *model.ClusterConfig) Stats {
	var s Stats
	if cfg == nil {
		return s
	}
	s.TotalMeshes = cfg.TotalMeshes

	var restaurants float64
	for _, c := range cfg.Clusters {
		if !st.Visible.Has(c.ID) {
			continue
		}
		s.VisibleMeshes += c.Count
		s.TotalBuildings += c.AvgBuildings * float64(c.Count)
		restaurants += c.AvgRestaurants * float64(c.Count)
	}
	if s.VisibleMeshes > 0 {
		s.AvgBuildings = s.TotalBuildings / float64(s.VisibleMeshes)
		s.AvgRestaurants = restaurants / float64(s.VisibleMeshes)
	}
	return s
}

// Rendered is the HTML of every panel.
type Rendered struct {
	Legend       string `json:"legend"`
	Filters      string `json:"filters"`
	Statistics   string `json:"statistics"`
	Notification string `json:"notification,omitempty"`
}

// Render builds all panels.
func Render(st *view.State, cfg *model.ClusterConfig, pal *palette.Set) (Rendered, error) {
	var r Rendered
	var err error
	if r.Legend, err = execute(legendTmpl, LegendSections(st, cfg, pal)); err != nil {
		return r, eris.Wrap(err, "panel: legend")
	}
	if r.Filters, err = execute(filtersTmpl, ClusterFilters(st, cfg)); err != nil {
		return r, eris.Wrap(err, "panel: filters")
	}
	if r.Statistics, err = execute(statsTmpl, statsView(Statistics(st, cfg))); err != nil {
		return r, eris.Wrap(err, "panel: statistics")
	}
	return r, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
