// Package mapview renders sets of points as circle markers on a tiled map.
package mapview

import (
	"math"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/pkg/geospatial"
)

const (
	DefaultZoom = 6

	// Stamen Toner, now hosted by Stadia Maps.
	DefaultTileURL     = "https://tiles.stadiamaps.com/tiles/stamen_toner/{z}/{x}/{y}{r}.png"
	DefaultAttribution = `&copy; <a href="https://stadiamaps.com/">Stadia Maps</a> ` +
		`&copy; <a href="https://stamen.com/">Stamen Design</a> ` +
		`&copy; <a href="https://openstreetmap.org/copyright">OpenStreetMap</a>`

	MarkerRadius = 5
	MarkerColor  = "blue"

	minZoom = 0
	maxZoom = 19
)

// Marker is a fixed-style circle drawn at a point.
type Marker struct {
	Location domain.GeoPoint `json:"location"`
	Radius   int             `json:"radius"`
	Color    string          `json:"color"`
}

// Map is a renderable set of markers with a viewport.
type Map struct {
	Center      domain.GeoPoint `json:"center"`
	Zoom        int             `json:"zoom"`
	TileURL     string          `json:"tile_url"`
	Attribution string          `json:"attribution"`
	Markers     []Marker        `json:"markers"`
}

// Option customises a Map built by New.
type Option func(*Map)

// WithZoom sets the initial zoom level, clamped to the range tile servers accept.
func WithZoom(zoom int) Option {
	return func(m *Map) {
		m.Zoom = max(minZoom, min(maxZoom, zoom))
	}
}

// WithTiles overrides the tile layer. Empty values keep the defaults.
func WithTiles(url, attribution string) Option {
	return func(m *Map) {
		if url != "" {
			m.TileURL = url
		}
		if attribution != "" {
			m.Attribution = attribution
		}
	}
}

// New builds a map with one marker per point, centered on the arithmetic
// mean of the coordinates. lats and lons must have the same length.
func New(lats, lons []float64, opts ...Option) (*Map, error) {
	if len(lats) != len(lons) {
		return nil, &domain.ShapeError{Field: "lons", Want: len(lats), Got: len(lons)}
	}
	n := len(lats)
	if n == 0 {
		return nil, domain.ErrEmptySequence
	}

	m := &Map{
		Zoom:        DefaultZoom,
		TileURL:     DefaultTileURL,
		Attribution: DefaultAttribution,
	}
	for _, opt := range opts {
		opt(m)
	}

	var sumLat, sumLon float64
	m.Markers = make([]Marker, n)
	for i := 0; i < n; i++ {
		sumLat += lats[i]
		sumLon += lons[i]
		m.Markers[i] = Marker{
			Location: domain.GeoPoint{Lat: lats[i], Lon: lons[i]},
			Radius:   MarkerRadius,
			Color:    MarkerColor,
		}
	}
	m.Center = domain.GeoPoint{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}

	return m, nil
}

// FromSequence is New over a PointSequence.
func FromSequence(seq domain.PointSequence, opts ...Option) (*Map, error) {
	return New(seq.Lats, seq.Lons, opts...)
}

// Bounds returns the box enclosing every marker, widened by padMeters on each side.
func (m *Map) Bounds(padMeters float64) domain.Bounds {
	b := domain.Bounds{
		MinLat: math.Inf(1), MinLon: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
	}
	for _, mk := range m.Markers {
		b.MinLat = math.Min(b.MinLat, mk.Location.Lat)
		b.MinLon = math.Min(b.MinLon, mk.Location.Lon)
		b.MaxLat = math.Max(b.MaxLat, mk.Location.Lat)
		b.MaxLon = math.Max(b.MaxLon, mk.Location.Lon)
	}
	if padMeters <= 0 || len(m.Markers) == 0 {
		return b
	}

	minLat, minLon, _, _ := geospatial.BoundingBox(b.MinLat, b.MinLon, padMeters)
	_, _, maxLat, maxLon := geospatial.BoundingBox(b.MaxLat, b.MaxLon, padMeters)
	return domain.Bounds{
		MinLat: math.Max(-90, minLat),
		MinLon: math.Max(-180, minLon),
		MaxLat: math.Min(90, maxLat),
		MaxLon: math.Min(180, maxLon),
	}
}
