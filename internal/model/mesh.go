package model

import (
	"math"
	"strconv"

	"github.com/paulmach/orb/geojson"
)

// Mesh feature property keys.
const (
	PropCluster        = "cluster"
	PropTotalBuildings = "建物総数"
	PropRestaurants    = "飲食店数"
	UsagePropPrefix    = "建物_"
)

// UsageCategories lists the building-usage category tags in display order.
var UsageCategories = []string{
	"官公庁施設",
	"共同住宅",
	"住宅",
	"商業施設",
	"文教厚生施設",
	"業務施設",
	"商業系複合施設",
	"店舗等併用住宅",
	"店舗等併用共同住宅",
	"宿泊施設",
}

// UsageProp returns the property key holding the building count for a category.
func UsageProp(category string) string {
	return UsagePropPrefix + category
}

// IsUsageCategory reports whether tag names one of the known categories.
func IsUsageCategory(tag string) bool {
	for _, c := range UsageCategories {
		if c == tag {
			return true
		}
	}
	return false
}

// Number reads a numeric property. Absent, null or non-numeric values read as zero.
func Number(props geojson.Properties, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Text reads a string property, formatting numbers when needed.
func Text(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// ClusterID reads the cluster id of a mesh feature.
func ClusterID(props geojson.Properties) (int, bool) {
	switch v := props[PropCluster].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// UsageShare is one category's count and share of a mesh cell's buildings.
type UsageShare struct {
	Category string
	Count    int
	Percent  float64
}

// UsageShares returns the categories with a positive count, with their
// percentage of total buildings rounded to one decimal. Percent is zero when
// the cell has no buildings.
func UsageShares(props geojson.Properties) []UsageShare {
	total := Number(props, PropTotalBuildings)
	var out []UsageShare
	for _, c := range UsageCategories {
		n := Number(props, UsageProp(c))
		if n <= 0 {
			continue
		}
		out = append(out, UsageShare{
			Category: c,
			Count:    int(n),
			Percent:  Percent(n, total),
		})
	}
	return out
}

// Percent returns round(100*part/total, 1 decimal), or zero when total is not positive.
func Percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(part/total*1000) / 10
}
