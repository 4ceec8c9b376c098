package prepare

import (
	"github.com/urban-mesh/clustermap/internal/model"
)

// Profile is the aggregate building mix of one cluster.
type Profile struct {
	Meshes      int
	Buildings   float64
	Restaurants float64
	Usage       map[string]float64
}

// Ratio is the share of a usage category among all buildings.
func (p Profile) Ratio(category string) float64 {
	if p.Buildings <= 0 {
		return 0
	}
	return p.Usage[category] / p.Buildings
}

// AvgRestaurants is the mean restaurant count per mesh.
func (p Profile) AvgRestaurants() float64 {
	if p.Meshes == 0 {
		return 0
	}
	return p.Restaurants / float64(p.Meshes)
}

// AvgBuildings is the mean building count per mesh.
func (p Profile) AvgBuildings() float64 {
	if p.Meshes == 0 {
		return 0
	}
	return p.Buildings / float64(p.Meshes)
}

type rule struct {
	name  string
	color string
	match func(p Profile) bool
}

// Rules are evaluated in order; the first match names the cluster.
var rules = []rule{
	{"超高密度商業地域", "#f39c12", func(p Profile) bool {
		return p.Ratio("商業施設") > 0.5 && p.AvgRestaurants() > 100
	}},
	{"商業集積地域", "#f1c40f", func(p Profile) bool { return p.Ratio("商業施設") > 0.5 }},
	{"商業混在地域", "#f4d03f", func(p Profile) bool { return p.Ratio("商業施設") > 0.1 }},
	{"集合住宅地域", "#7dcea0", func(p Profile) bool { return p.Ratio("共同住宅") > 0.3 }},
	{"戸建住宅地域", "#27ae60", func(p Profile) bool { return p.Ratio("住宅") > 0.7 }},
	{"店舗併用集合住宅地域", "#aed581", func(p Profile) bool { return p.Ratio("店舗等併用共同住宅") > 0.2 }},
	{"店舗併用住宅地域", "#c5e1a5", func(p Profile) bool { return p.Ratio("店舗等併用住宅") > 0.2 }},
	{"複合商業地域", "#ffd54f", func(p Profile) bool { return p.Ratio("商業系複合施設") > 0.3 }},
	{"業務地域", "#e74c3c", func(p Profile) bool { return p.Ratio("業務施設") > 0.3 }},
	{"文教施設地域", "#3498db", func(p Profile) bool { return p.Ratio("文教厚生施設") > 0.5 }},
	{"官公庁施設地域", "#9b59b6", func(p Profile) bool { return p.Ratio("官公庁施設") > 0.5 }},
	{"低密度地域", "#95a5a6", func(p Profile) bool { return p.AvgBuildings() < 50 }},
}

// Name picks a display name and color for a cluster from its building mix.
func Name(p Profile) (name, color string) {
	if p.Buildings <= 0 {
		return "低密度地域", "#bdc3c7"
	}
	for _, r := range rules {
		if r.match(p) {
			return r.name, r.color
		}
	}
	return "混合地域", "#e67e22"
}

// Add folds one mesh's properties into the profile.
func (p *Profile) Add(props map[string]any) {
	if p.Usage == nil {
		p.Usage = make(map[string]float64, len(model.UsageCategories))
	}
	p.Meshes++
	p.Buildings += model.Number(props, model.PropTotalBuildings)
	p.Restaurants += model.Number(props, model.PropRestaurants)
	for _, c := range model.UsageCategories {
		p.Usage[c] += model.Number(props, model.UsageProp(c))
	}
}
