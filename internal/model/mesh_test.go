package model

import (
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	t.Parallel()

	props := geojson.Properties{
		"f":    12.5,
		"i":    7,
		"s":    "42",
		"bad":  "n/a",
		"null": nil,
	}

	assert.InDelta(t, 12.5, Number(props, "f"), 1e-9)
	assert.InDelta(t, 7, Number(props, "i"), 1e-9)
	assert.InDelta(t, 42, Number(props, "s"), 1e-9)
	assert.Zero(t, Number(props, "bad"))
	assert.Zero(t, Number(props, "null"))
	assert.Zero(t, Number(props, "missing"))
}

func TestClusterID(t *testing.T) {
	t.Parallel()

	id, ok := ClusterID(geojson.Properties{"cluster": 3.0})
	assert.True(t, ok)
	assert.Equal(t, 3, id)

	_, ok = ClusterID(geojson.Properties{})
	assert.False(t, ok)
}

func TestPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		part, total, want float64
	}{
		{1, 3, 33.3},
		{2, 3, 66.7},
		{5, 5, 100},
		{1, 8, 12.5},
		{4, 0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percent(tt.part, tt.total), 1e-9)
	}
}

func TestUsageShares_OmitsZeroCategories(t *testing.T) {
	t.Parallel()

	props := geojson.Properties{
		PropTotalBuildings: 30.0,
		UsageProp("住宅"): 20.0,
		UsageProp("商業施設"): 10.0,
		UsageProp("共同住宅"): 0.0,
		UsageProp("官公庁施設"): nil,
	}

	shares := UsageShares(props)
	assert.Len(t, shares, 2)
	assert.Equal(t, "住宅", shares[0].Category)
	assert.Equal(t, 20, shares[0].Count)
	assert.InDelta(t, 66.7, shares[0].Percent, 1e-9)
	assert.Equal(t, "商業施設", shares[1].Category)
	assert.InDelta(t, 33.3, shares[1].Percent, 1e-9)
}

func TestUsageShares_ZeroTotal(t *testing.T) {
	t.Parallel()

	shares := UsageShares(geojson.Properties{
		PropTotalBuildings: 0.0,
		UsageProp("住宅"): 3.0,
	})
	assert.Len(t, shares, 1)
	assert.Zero(t, shares[0].Percent)
}

func TestIsUsageCategory(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUsageCategory("宿泊施設"))
	assert.False(t, IsUsageCategory("cluster"))
	assert.Len(t, UsageCategories, 10)
}
