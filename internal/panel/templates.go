package panel

import (
	"html/template"

	"github.com/urban-mesh/clustermap/internal/model"
)

var legendTmpl = template.Must(template.New("legend").Parse(`<div id="legend-content">
{{- range .}}
<h4>{{.Title}}</h4>
{{- $round := .Round}}
{{- range .Items}}
<div class="legend-item"><span class="legend-color{{if $round}} round{{end}}" style="background-color: {{.Color}}"></span><span class="legend-label">{{.Label}}</span></div>
{{- end}}
{{- end}}
</div>`))

var filtersTmpl = template.Must(template.New("filters").Parse(`<div id="cluster-filters">
{{- range .}}
<div class="cluster-filter-item"><input type="checkbox" id="{{.ElementID}}" data-cluster="{{.ID}}"{{if .Checked}} checked{{end}}><label for="{{.ElementID}}"><span class="cluster-color" style="background-color: {{.Color}}"></span><span>{{.Name}} ({{.Count}})</span></label></div>
{{- end}}
</div>`))

var statsTmpl = template.Must(template.New("stats").Parse(`<div id="statistics">
<p>総メッシュ数: <span id="total-meshes">{{.TotalMeshes}}</span></p>
<p>表示メッシュ数: <span id="visible-meshes">{{.VisibleMeshes}}</span></p>
<p>総建物数: <span id="total-buildings">{{.TotalBuildings}}</span></p>
<p>平均建物数: <span id="avg-buildings">{{.AvgBuildings}}</span></p>
<p>平均飲食店数: <span id="avg-restaurants">{{.AvgRestaurants}}</span></p>
</div>`))

type statsText struct {
	TotalMeshes    string
	VisibleMeshes  string
	TotalBuildings string
	AvgBuildings   string
	AvgRestaurants string
}

func statsView(s Stats) statsText {
	return statsText{
		TotalMeshes:    model.FormatCount(float64(s.TotalMeshes)),
		VisibleMeshes:  model.FormatCount(float64(s.VisibleMeshes)),
		TotalBuildings: model.FormatCount(s.TotalBuildings),
		AvgBuildings:   model.FormatDecimal(s.AvgBuildings),
		AvgRestaurants: model.FormatDecimal(s.AvgRestaurants),
	}
}
