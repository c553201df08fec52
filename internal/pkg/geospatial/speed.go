package geospatial

import (
	"github.com/sourcegraph/conc/iter"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// parallelThreshold is the input size above which PointSpeeds fans out.
const parallelThreshold = 4096

// PointSpeed returns the speed in m/s needed to travel from a to b.
// Zero elapsed time yields 0.
func PointSpeed(a, b domain.PointSample) float64 {
	dt := TimeDelta(a.Time, b.Time)
	if dt <= 0 {
		return 0
	}
	return SphericalDistance(a.Location, b.Location) / float64(dt)
}

type samplePair struct {
	from, to domain.PointSample
}

// PointSpeeds applies PointSpeed index by index over two timed sequences of
// equal length. The result has one speed per index.
func PointSpeeds(from, to domain.PointSequence) ([]float64, error) {
	if err := from.ValidateTimed(); err != nil {
		return nil, err
	}
	if err := to.ValidateTimed(); err != nil {
		return nil, err
	}
	if from.Len() != to.Len() {
		return nil, &domain.ShapeError{Field: "to", Want: from.Len(), Got: to.Len()}
	}

	n := from.Len()
	if n < parallelThreshold {
		speeds := make([]float64, n)
		for i := 0; i < n; i++ {
			speeds[i] = PointSpeed(from.At(i), to.At(i))
		}
		return speeds, nil
	}

	pairs := make([]samplePair, n)
	for i := range pairs {
		pairs[i] = samplePair{from: from.At(i), to: to.At(i)}
	}
	return iter.Map(pairs, func(p *samplePair) float64 {
		return PointSpeed(p.from, p.to)
	}), nil
}

// SpeedProfile returns the speed between each sample and its predecessor.
// The first element is always 0, so the result has the same length as seq.
func SpeedProfile(seq domain.PointSequence) ([]float64, error) {
	if err := seq.ValidateTimed(); err != nil {
		return nil, err
	}
	n := seq.Len()
	if n == 0 {
		return []float64{}, nil
	}

	prev := domain.PointSequence{Lats: seq.Lats[:n-1], Lons: seq.Lons[:n-1], Times: seq.Times[:n-1]}
	next := domain.PointSequence{Lats: seq.Lats[1:], Lons: seq.Lons[1:], Times: seq.Times[1:]}

	speeds, err := PointSpeeds(prev, next)
	if err != nil {
		return nil, err
	}
	return append([]float64{0}, speeds...), nil
}

// PathLength sums the great-circle distance between consecutive points.
func PathLength(seq domain.PointSequence) (float64, error) {
	if err := seq.Validate(); err != nil {
		return 0, err
	}
	var total float64
	for i := 1; i < seq.Len(); i++ {
		total += SphericalDistance(
			domain.GeoPoint{Lat: seq.Lats[i-1], Lon: seq.Lons[i-1]},
			domain.GeoPoint{Lat: seq.Lats[i], Lon: seq.Lons[i]},
		)
	}
	return total, nil
}
