package mapview

import (
	"fmt"
	"html/template"
	"io"
)

var pageTmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
  <style>html,body,#map{height:100%;margin:0}</style>
</head>
<body>
  <div id="map"></div>
  <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
  <script>
    const map = L.map('map').setView([{{.Center.Lat}}, {{.Center.Lon}}], {{.Zoom}});
    L.tileLayer({{.TileURL}}, {attribution: {{.Attribution}}, maxZoom: 20}).addTo(map);
    const markers = {{.Markers}};
    for (const m of markers) {
      L.circleMarker([m.lat, m.lon], {radius: m.radius, color: m.color}).addTo(map);
    }
  </script>
</body>
</html>
`))

type jsMarker struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius int     `json:"radius"`
	Color  string  `json:"color"`
}

// RenderHTML writes a standalone Leaflet page showing the map.
func (m *Map) RenderHTML(w io.Writer) error {
	markers := make([]jsMarker, len(m.Markers))
	for i, mk := range m.Markers {
		markers[i] = jsMarker{Lat: mk.Location.Lat, Lon: mk.Location.Lon, Radius: mk.Radius, Color: mk.Color}
	}

	data := struct {
		*Map
		Title   string
		Markers []jsMarker
	}{
		Map:     m,
		Title:   fmt.Sprintf("%d points", len(m.Markers)),
		Markers: markers,
	}

	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render map html: %w", err)
	}
	return nil
}
