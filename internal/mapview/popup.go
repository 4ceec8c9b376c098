package mapview

import (
	"bytes"
	"html/template"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/urban-mesh/clustermap/internal/model"
)

var meshPopupTmpl = template.Must(template.New("mesh").Parse(`<div class="popup mesh-popup">
<h3>メッシュ情報</h3>
<p><strong>クラスター:</strong> {{.Cluster}}</p>
{{- if .ClusterName}}
<p><strong>クラスター名:</strong> {{.ClusterName}}</p>
{{- end}}
<p><strong>建物総数:</strong> {{.TotalBuildings}}</p>
<p><strong>飲食店数:</strong> {{.Restaurants}}</p>
{{- if .Usages}}
<h4>建物用途</h4>
{{- range .Usages}}
<p><strong>{{.Category}}:</strong> {{.Count}} ({{printf "%.1f" .Percent}}%)</p>
{{- end}}
{{- end}}
</div>`))

var stationPopupTmpl = template.Must(template.New("station").Parse(`<div class="popup station-popup">
<h3>{{.Name}}</h3>
<p><strong>運営会社:</strong> {{.Operator}}</p>
<p><strong>路線名:</strong> {{.Line}}</p>
<p><strong>乗降客数(2023):</strong> {{.Passengers}}人</p>
</div>`))

type meshPopupData struct {
	Cluster        string
	ClusterName    string
	TotalBuildings string
	Restaurants    string
	Usages         []usageRow
}

type usageRow struct {
	Category string
	Count    string
	Percent  float64
}

type stationPopupData struct {
	Name       string
	Operator   string
	Line       string
	Passengers string
}

// MeshPopup renders the info window for a mesh feature. Usage categories with
// a zero or absent count are omitted.
func MeshPopup(props geojson.Properties, cfg *model.ClusterConfig) (string, error) {
	data := meshPopupData{
		Cluster:        model.Text(props, model.PropCluster),
		TotalBuildings: model.FormatCount(model.Number(props, model.PropTotalBuildings)),
		Restaurants:    model.FormatCount(model.Number(props, model.PropRestaurants)),
	}
	if id, ok := model.ClusterID(props); ok {
		if c, found := cfg.Find(id); found {
			data.ClusterName = c.Name
		}
	}
	for _, u := range model.UsageShares(props) {
		data.Usages = append(data.Usages, usageRow{
			Category: u.Category,
			Count:    model.FormatCount(float64(u.Count)),
			Percent:  u.Percent,
		})
	}

	var buf bytes.Buffer
	if err := meshPopupTmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "mapview: mesh popup")
	}
	return buf.String(), nil
}

// StationPopup renders the info window for a station feature.
func StationPopup(props geojson.Properties) (string, error) {
	data := stationPopupData{
		Name:       model.Text(props, model.PropStation),
		Operator:   model.Text(props, model.PropOperator),
		Line:       model.Text(props, model.PropLine),
		Passengers: model.FormatCount(model.Number(props, model.PropPassengers)),
	}
	var buf bytes.Buffer
	if err := stationPopupTmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "mapview: station popup")
	}
	return buf.String(), nil
}
