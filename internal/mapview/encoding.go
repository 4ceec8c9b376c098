package mapview

import (
	"github.com/urban-mesh/clustermap/internal/expr"
	"github.com/urban-mesh/clustermap/internal/model"
	"github.com/urban-mesh/clustermap/internal/palette"
	"github.com/urban-mesh/clustermap/internal/view"
)

// VisibleFilter keeps features whose cluster id is in the visible set.
func VisibleFilter(visible view.ClusterSet) []any {
	ids := visible.IDs()
	if ids == nil {
		ids = []int{}
	}
	return expr.In(expr.Get(model.PropCluster), ids)
}

// FillColor builds the fill-color expression for a display mode. Missing or
// non-numeric attributes read as zero.
func FillColor(mode view.DisplayMode, cfg *model.ClusterConfig, pal *palette.Set) any {
	switch mode {
	case view.ModeDensity:
		return pal.Density.InterpolateExpr(numeric(model.PropRestaurants))
	case view.ModeBuildings:
		return pal.Buildings.InterpolateExpr(numeric(model.PropTotalBuildings))
	}
	if category, ok := mode.UsageCategory(); ok {
		total := numeric(model.PropTotalBuildings)
		ratio := expr.Div(numeric(model.UsageProp(category)), total)
		return expr.Case(
			expr.Eq(total, 0),
			pal.NoBuildings,
			pal.UsageRatio.InterpolateExpr(ratio),
		)
	}
	return clusterColor(cfg, pal)
}

func clusterColor(cfg *model.ClusterConfig, pal *palette.Set) any {
	var arms []expr.Arm
	if cfg != nil {
		arms = make([]expr.Arm, 0, len(cfg.Clusters))
		for _, c := range cfg.Clusters {
			arms = append(arms, expr.Arm{Label: c.ID, Output: c.Color})
		}
	}
	return expr.Match(expr.Get(model.PropCluster), arms, pal.ClusterFallback)
}

func numeric(key string) []any {
	return expr.ToNumber(expr.Get(key), 0)
}
