package geospatial_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/pkg/geospatial"
)

func TestCentroid_SinglePoint(t *testing.T) {
	points := []domain.GeoPoint{
		{Lat: 39.984702, Lon: 116.318417},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 0, Lon: 0},
		{Lat: 43.263, Lon: -2.935},
	}
	for _, p := range points {
		c, err := geospatial.Centroid([]float64{p.Lat}, []float64{p.Lon})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(c.Lat-p.Lat) > 1e-9 || math.Abs(c.Lon-p.Lon) > 1e-9 {
			t.Errorf("expected %v, got %v", p, c)
		}
	}
}

func TestCentroid_AcrossAntimeridian(t *testing.T) {
	c, err := geospatial.Centroid([]float64{10, 10}, []float64{179, -179})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(math.Abs(c.Lon)-180) > 1e-9 {
		t.Errorf("expected longitude near 180, got %f", c.Lon)
	}
	if math.Abs(c.Lat-10) > 0.01 {
		t.Errorf("expected latitude near 10, got %f", c.Lat)
	}
}

func TestCentroid_Symmetric(t *testing.T) {
	c, err := geospatial.Centroid([]float64{1, -1, 1, -1}, []float64{1, 1, -1, -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(c.Lat) > 1e-9 || math.Abs(c.Lon) > 1e-9 {
		t.Errorf("expected origin, got %v", c)
	}
}

// Antipodal points average to a near-zero vector; the direction is
// implementation-defined, the call must simply not fail.
func TestCentroid_AntipodalDegenerate(t *testing.T) {
	c, err := geospatial.Centroid([]float64{0, 0}, []float64{0, 180})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		t.Logf("degenerate centroid: %v", c)
	}
}

func TestCentroid_ShapeMismatch(t *testing.T) {
	_, err := geospatial.Centroid([]float64{1, 2, 3}, []float64{1, 2})
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	var shapeErr *domain.ShapeError
	if !errors.As(err, &shapeErr) || shapeErr.Want != 3 || shapeErr.Got != 2 {
		t.Errorf("unexpected shape error details: %v", err)
	}
}

func TestCentroid_Empty(t *testing.T) {
	if _, err := geospatial.Centroid(nil, nil); !errors.Is(err, domain.ErrEmptySequence) {
		t.Errorf("expected ErrEmptySequence, got %v", err)
	}
}
