package usecases

import (
	"fmt"
	"time"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/pkg/geospatial"
	"github.com/samirrijal/trajprep/internal/pkg/mapview"
	"github.com/samirrijal/trajprep/internal/pkg/metrics"
)

// MapDefaults configures the tile layer used for rendered maps.
type MapDefaults struct {
	TileURL     string
	Attribution string
	Zoom        int
}

// GeoService exposes the stateless geospatial helpers to the API layer,
// adding coordinate validation and metrics.
type GeoService struct {
	mapDefaults MapDefaults
}

// NewGeoService creates a new GeoService.
func NewGeoService(mapDefaults MapDefaults) *GeoService {
	if mapDefaults.Zoom <= 0 {
		mapDefaults.Zoom = mapview.DefaultZoom
	}
	return &GeoService{mapDefaults: mapDefaults}
}

// Distance returns the great-circle distance in meters.
func (s *GeoService) Distance(a, b domain.GeoPoint) (float64, error) {
	if err := checkPoints("distance", a, b); err != nil {
		return 0, err
	}
	return geospatial.SphericalDistance(a, b), nil
}

// TimeDelta returns the absolute difference in whole seconds.
func (s *GeoService) TimeDelta(t1, t2 time.Time) int64 {
	return geospatial.TimeDelta(t1, t2)
}

// Speed returns the speed in m/s between two samples.
func (s *GeoService) Speed(a, b domain.PointSample) (float64, error) {
	if err := checkPoints("speed", a.Location, b.Location); err != nil {
		return 0, err
	}
	return geospatial.PointSpeed(a, b), nil
}

// Speeds applies Speed element-wise over two sequences.
func (s *GeoService) Speeds(from, to domain.PointSequence) ([]float64, error) {
	for _, seq := range []domain.PointSequence{from, to} {
		if err := seq.ValidateTimed(); err != nil {
			return nil, reject("speeds", err)
		}
		if err := seq.ValidateCoordinates(); err != nil {
			return nil, reject("speeds", err)
		}
	}
	speeds, err := geospatial.PointSpeeds(from, to)
	if err != nil {
		return nil, reject("speeds", err)
	}
	return speeds, nil
}

// Centroid returns the spherical centroid of the sequence.
func (s *GeoService) Centroid(seq domain.PointSequence) (domain.GeoPoint, error) {
	if err := validateUntimed(seq); err != nil {
		return domain.GeoPoint{}, reject("centroid", err)
	}
	c, err := geospatial.CentroidOf(seq)
	if err != nil {
		return domain.GeoPoint{}, reject("centroid", err)
	}
	metrics.CentroidsComputed.Inc()
	return c, nil
}

// Map builds a renderable map of the sequence. A zoom of 0 uses the default.
func (s *GeoService) Map(seq domain.PointSequence, zoom int) (*mapview.Map, error) {
	if err := validateUntimed(seq); err != nil {
		return nil, reject("map", err)
	}
	if zoom <= 0 {
		zoom = s.mapDefaults.Zoom
	}
	m, err := mapview.FromSequence(seq,
		mapview.WithZoom(zoom),
		mapview.WithTiles(s.mapDefaults.TileURL, s.mapDefaults.Attribution),
	)
	if err != nil {
		return nil, reject("map", err)
	}
	return m, nil
}

// validateUntimed checks lengths of the coordinate arrays only; timestamps
// are irrelevant to centroid and map rendering.
func validateUntimed(seq domain.PointSequence) error {
	seq.Times = nil
	if err := seq.Validate(); err != nil {
		return err
	}
	return seq.ValidateCoordinates()
}

func checkPoints(op string, points ...domain.GeoPoint) error {
	for _, p := range points {
		if !p.Valid() {
			return reject(op, fmt.Errorf("(%g, %g): %w", p.Lat, p.Lon, domain.ErrInvalidCoordinate))
		}
	}
	return nil
}

func reject(op string, err error) error {
	if domain.IsInputError(err) {
		metrics.InputRejected.WithLabelValues(op).Inc()
	}
	return err
}
