package geospatial

import (
	"math"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// Centroid returns the spherical centroid of the given points. Each point is
// mapped to a unit vector, the vectors are averaged, and the mean is projected
// back to latitude/longitude.
//
// Points spread symmetrically around the globe average to a near-zero vector
// and the resulting direction is unstable; that is not reported as an error.
func Centroid(lats, lons []float64) (domain.GeoPoint, error) {
	if len(lats) != len(lons) {
		return domain.GeoPoint{}, &domain.ShapeError{Field: "lons", Want: len(lats), Got: len(lons)}
	}
	n := len(lats)
	if n == 0 {
		return domain.GeoPoint{}, domain.ErrEmptySequence
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i := range lats {
		lat, lon := toRad(lats[i]), toRad(lons[i])
		xs[i] = math.Cos(lat) * math.Cos(lon)
		ys[i] = math.Cos(lat) * math.Sin(lon)
		zs[i] = math.Sin(lat)
	}

	if len(xs) != len(ys) || len(xs) != len(zs) {
		return domain.GeoPoint{}, &domain.ShapeError{Field: "axes", Want: len(xs), Got: len(ys)}
	}

	x, y, z := mean(xs), mean(ys), mean(zs)

	lon := math.Atan2(y, x)
	lat := math.Atan2(z, math.Sqrt(x*x+y*y))

	return domain.GeoPoint{Lat: toDeg(lat), Lon: toDeg(lon)}, nil
}

// CentroidOf is Centroid over a PointSequence.
func CentroidOf(seq domain.PointSequence) (domain.GeoPoint, error) {
	return Centroid(seq.Lats, seq.Lons)
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
