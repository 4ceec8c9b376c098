package model

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Cluster describes one group of mesh cells in a cluster config document.
type Cluster struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	Color          string         `json:"color"`
	Count          int            `json:"count"`
	AvgBuildings   float64        `json:"avg_buildings"`
	AvgRestaurants float64        `json:"avg_restaurants"`
	BuildingTypes  map[string]int `json:"building_types,omitempty"`
}

// ClusterConfig is the metadata document loaded alongside a mesh collection
// for one cluster count.
type ClusterConfig struct {
	ClusterCount int       `json:"cluster_count,omitempty"`
	TotalMeshes  int       `json:"total_meshes"`
	Clusters     []Cluster `json:"clusters"`
}

// Validate checks that cluster ids are unique.
func (c *ClusterConfig) Validate() error {
	seen := make(map[int]struct{}, len(c.Clusters))
	for _, cl := range c.Clusters {
		if _, ok := seen[cl.ID]; ok {
			return eris.Errorf("model: duplicate cluster id %d", cl.ID)
		}
		seen[cl.ID] = struct{}{}
	}
	return nil
}

// IDs returns every cluster id in ascending order.
func (c *ClusterConfig) IDs() []int {
	if c == nil {
		return nil
	}
	ids := make([]int, 0, len(c.Clusters))
	for _, cl := range c.Clusters {
		ids = append(ids, cl.ID)
	}
	sort.Ints(ids)
	return ids
}

// Find returns the cluster with the given id.
func (c *ClusterConfig) Find(id int) (Cluster, bool) {
	if c == nil {
		return Cluster{}, false
	}
	for _, cl := range c.Clusters {
		if cl.ID == id {
			return cl, true
		}
	}
	return Cluster{}, false
}
