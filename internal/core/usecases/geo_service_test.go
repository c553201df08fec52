package usecases_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/core/usecases"
	"github.com/samirrijal/trajprep/internal/pkg/geospatial"
)

func TestGeoService_Distance(t *testing.T) {
	svc := usecases.NewGeoService(usecases.MapDefaults{})

	d, err := svc.Distance(domain.GeoPoint{Lat: 0, Lon: 0}, domain.GeoPoint{Lat: 0, Lon: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := geospatial.EarthRadiusMeters * math.Pi / 180; math.Abs(d-want) > 1e-3 {
		t.Errorf("expected %f m, got %f", want, d)
	}

	if _, err := svc.Distance(domain.GeoPoint{Lat: 95}, domain.GeoPoint{}); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestGeoService_Speeds(t *testing.T) {
	svc := usecases.NewGeoService(usecases.MapDefaults{})
	from := domain.PointSequence{Lats: []float64{0, 10}, Lons: []float64{0, 10}, Times: []time.Time{base, base}}
	to := domain.PointSequence{Lats: []float64{0, 10}, Lons: []float64{0.001, 10}, Times: []time.Time{base.Add(10 * time.Second), base}}

	speeds, err := svc.Speeds(from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(speeds) != 2 || speeds[0] <= 0 || speeds[1] != 0 {
		t.Errorf("unexpected speeds %v", speeds)
	}

	to.Times = to.Times[:1]
	if _, err := svc.Speeds(from, to); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
}

func TestGeoService_Centroid_IgnoresTimes(t *testing.T) {
	svc := usecases.NewGeoService(usecases.MapDefaults{})
	c, err := svc.Centroid(domain.PointSequence{Lats: []float64{10}, Lons: []float64{20}, Times: []time.Time{base, base}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(c.Lat-10) > 1e-9 || math.Abs(c.Lon-20) > 1e-9 {
		t.Errorf("expected (10, 20), got %v", c)
	}
}

func TestGeoService_Map(t *testing.T) {
	svc := usecases.NewGeoService(usecases.MapDefaults{TileURL: "https://tiles.example/{z}/{x}/{y}.png", Zoom: 9})

	m, err := svc.Map(domain.PointSequence{Lats: []float64{1, 3}, Lons: []float64{2, 4}}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Zoom != 9 {
		t.Errorf("expected configured default zoom 9, got %d", m.Zoom)
	}
	if m.TileURL != "https://tiles.example/{z}/{x}/{y}.png" {
		t.Errorf("unexpected tile url %s", m.TileURL)
	}

	if _, err := svc.Map(domain.PointSequence{Lats: []float64{1, 3}, Lons: []float64{2}}, 0); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
}
