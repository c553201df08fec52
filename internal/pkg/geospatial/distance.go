// Package geospatial holds the closed-form geometry used to preprocess GPS
// trajectories: great-circle distance, elapsed time, point speed and
// spherical centroids.
package geospatial

import (
	"math"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// EarthRadiusMeters is the mean-radius approximation used for every
// distance in this package. It is not the WGS-84 ellipsoid.
const EarthRadiusMeters = 6366707.0

// SphericalDistance returns the great-circle distance in meters between a
// and b using the spherical law of cosines.
func SphericalDistance(a, b domain.GeoPoint) float64 {
	if a.Lat == b.Lat && a.Lon == b.Lon {
		return 0
	}

	latFrom := toRad(a.Lat)
	latTo := toRad(b.Lat)
	dLon := toRad(b.Lon) - toRad(a.Lon)

	cosAngle := math.Sin(latFrom)*math.Sin(latTo) +
		math.Cos(latFrom)*math.Cos(latTo)*math.Cos(dLon)

	// Rounding pushes near-identical points slightly past 1.
	cosAngle = math.Max(-1, math.Min(1, cosAngle))

	return math.Acos(cosAngle) * EarthRadiusMeters
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	metersPerDegree := EarthRadiusMeters * math.Pi / 180
	latDelta := radiusMeters / metersPerDegree
	lonDelta := radiusMeters / (metersPerDegree * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
