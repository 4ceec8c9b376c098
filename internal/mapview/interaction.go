package mapview

import (
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/scene"
)

const pointerCursor = "pointer"

func (s *Synchronizer) bindMeshHandlers() {
	if s.meshHandlers {
		return
	}
	s.engine.On(scene.EventClick, MeshFillLayer, func(ev scene.Event) {
		if ev.Feature == nil {
			return
		}
		html, err := MeshPopup(ev.Feature.Properties, s.data.Config)
		if err != nil {
			zap.L().Error("mapview: render mesh popup", zap.Error(err))
			return
		}
		s.engine.ShowPopup(scene.Popup{LngLat: ev.LngLat, HTML: html})
	})
	s.bindHoverCursor(MeshFillLayer)
	s.meshHandlers = true
}

func (s *Synchronizer) bindStationHandlers() {
	if s.stationHandlers {
		return
	}
	s.engine.On(scene.EventClick, StationLayer, func(ev scene.Event) {
		if ev.Feature == nil {
			return
		}
		html, err := StationPopup(ev.Feature.Properties)
		if err != nil {
			zap.L().Error("mapview: render station popup", zap.Error(err))
			return
		}
		s.engine.ShowPopup(scene.Popup{LngLat: ev.LngLat, HTML: html})
	})
	s.bindHoverCursor(StationLayer)
	s.stationHandlers = true
}

func (s *Synchronizer) bindHoverCursor(layerID string) {
	s.engine.On(scene.EventMouseEnter, layerID, func(scene.Event) {
		s.engine.SetCursor(pointerCursor)
	})
	s.engine.On(scene.EventMouseLeave, layerID, func(scene.Event) {
		s.engine.SetCursor("")
	})
}
