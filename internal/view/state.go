// Package view holds the single map view state.
package view

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/urban-mesh/clustermap/internal/model"
)

// DisplayMode selects the mesh fill encoding. Besides the three named modes,
// every usage category tag is a valid mode.
type DisplayMode string

const (
	ModeCluster   DisplayMode = "cluster"
	ModeDensity   DisplayMode = "density"
	ModeBuildings DisplayMode = "buildings"
)

// ParseMode validates a display mode.
func ParseMode(s string) (DisplayMode, error) {
	switch DisplayMode(s) {
	case ModeCluster, ModeDensity, ModeBuildings:
		return DisplayMode(s), nil
	}
	if model.IsUsageCategory(s) {
		return DisplayMode(s), nil
	}
	return "", eris.Errorf("view: unknown display mode %q", s)
}

// UsageCategory returns the category tag when the mode is a usage mode.
func (m DisplayMode) UsageCategory() (string, bool) {
	if model.IsUsageCategory(string(m)) {
		return string(m), true
	}
	return "", false
}

// ScaleFilters toggles station passenger bands.
type ScaleFilters struct {
	Small  bool `json:"small"`
	Medium bool `json:"medium"`
	Large  bool `json:"large"`
}

// Allows reports whether stations in band are shown.
func (f ScaleFilters) Allows(b model.Band) bool {
	switch b {
	case model.BandSmall:
		return f.Small
	case model.BandMedium:
		return f.Medium
	case model.BandLarge:
		return f.Large
	}
	return false
}

// Set toggles one band.
func (f *ScaleFilters) Set(b model.Band, on bool) {
	switch b {
	case model.BandSmall:
		f.Small = on
	case model.BandMedium:
		f.Medium = on
	case model.BandLarge:
		f.Large = on
	}
}

// BufferConfig controls station proximity zones.
type BufferConfig struct {
	Enabled        bool `json:"enabled"`
	DistanceMeters int  `json:"distance_meters"`
}

// ClusterSet is the set of visible cluster ids.
type ClusterSet map[int]struct{}

// NewClusterSet builds a set from ids.
func NewClusterSet(ids ...int) ClusterSet {
	s := make(ClusterSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s ClusterSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// IDs returns members in ascending order.
func (s ClusterSet) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Retain drops ids not present in cfg.
func (s ClusterSet) Retain(cfg *model.ClusterConfig) {
	for id := range s {
		if _, ok := cfg.Find(id); !ok {
			delete(s, id)
		}
	}
}

// State is the complete view state.
type State struct {
	ClusterCount int          `json:"cluster_count"`
	DisplayMode  DisplayMode  `json:"display_mode"`
	Opacity      float64      `json:"opacity"`
	ShowStations bool         `json:"show_stations"`
	ScaleFilters ScaleFilters `json:"scale_filters"`
	Buffer       BufferConfig `json:"buffer"`
	Visible      ClusterSet   `json:"-"`
}

// Defaults for a fresh view.
const (
	DefaultClusterCount   = 6
	DefaultOpacity        = 0.7
	DefaultBufferDistance = 500
)

// NewState returns the initial state for the given cluster count.
func NewState(clusterCount int) *State {
	return &State{
		ClusterCount: clusterCount,
		DisplayMode:  ModeCluster,
		Opacity:      DefaultOpacity,
		ScaleFilters: ScaleFilters{Small: true, Medium: true, Large: true},
		Buffer:       BufferConfig{DistanceMeters: DefaultBufferDistance},
		Visible:      NewClusterSet(),
	}
}

// ResetVisible makes exactly the clusters of cfg visible.
func (s *State) ResetVisible(cfg *model.ClusterConfig) {
	s.Visible = NewClusterSet(cfg.IDs()...)
}

// SetOpacityPercent converts an integer percentage to an opacity in [0,1].
func (s *State) SetOpacityPercent(pct int) error {
	if pct < 0 || pct > 100 {
		return eris.Errorf("view: opacity %d%% out of range", pct)
	}
	s.Opacity = float64(pct) / 100
	return nil
}

// Snapshot is the JSON view of State including the visible ids.
type Snapshot struct {
	State
	VisibleClusters []int `json:"visible_clusters"`
}

// Snapshot copies the state for serialization.
func (s *State) Snapshot() Snapshot {
	return Snapshot{State: *s, VisibleClusters: s.Visible.IDs()}
}
