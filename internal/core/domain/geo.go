package domain

import (
	"fmt"
	"time"
)

// GeoPoint represents a geographic coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within [-90,90] x [-180,180].
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// PointSample is a single trajectory observation.
type PointSample struct {
	Location GeoPoint  `json:"location"`
	Time     time.Time `json:"time"`
}

// PointSequence holds parallel coordinate arrays and, optionally, the
// timestamps observed at each index.
type PointSequence struct {
	Lats  []float64   `json:"lats"`
	Lons  []float64   `json:"lons"`
	Times []time.Time `json:"times,omitempty"`
}

// Len returns the number of latitudes in the sequence.
func (s PointSequence) Len() int {
	return len(s.Lats)
}

// Validate checks that the coordinate arrays (and timestamps, when present)
// have the same length.
func (s PointSequence) Validate() error {
	if len(s.Lats) != len(s.Lons) {
		return &ShapeError{Field: "lons", Want: len(s.Lats), Got: len(s.Lons)}
	}
	if s.Times != nil && len(s.Times) != len(s.Lats) {
		return &ShapeError{Field: "times", Want: len(s.Lats), Got: len(s.Times)}
	}
	return nil
}

// ValidateTimed is Validate, but timestamps are mandatory for a non-empty
// sequence.
func (s PointSequence) ValidateTimed() error {
	if s.Times == nil && len(s.Lats) > 0 {
		return &ShapeError{Field: "times", Want: len(s.Lats), Got: 0}
	}
	return s.Validate()
}

// At returns the sample at index i. Times must be populated.
func (s PointSequence) At(i int) PointSample {
	return PointSample{
		Location: GeoPoint{Lat: s.Lats[i], Lon: s.Lons[i]},
		Time:     s.Times[i],
	}
}

// SequenceFromSamples splits samples into parallel arrays.
func SequenceFromSamples(samples []PointSample) PointSequence {
	seq := PointSequence{
		Lats:  make([]float64, len(samples)),
		Lons:  make([]float64, len(samples)),
		Times: make([]time.Time, len(samples)),
	}
	for i, s := range samples {
		seq.Lats[i] = s.Location.Lat
		seq.Lons[i] = s.Location.Lon
		seq.Times[i] = s.Time
	}
	return seq
}

// ValidateCoordinates checks every point of the sequence against the
// latitude/longitude ranges. It assumes the arrays already have equal length.
func (s PointSequence) ValidateCoordinates() error {
	for i := range s.Lats {
		p := GeoPoint{Lat: s.Lats[i], Lon: s.Lons[i]}
		if !p.Valid() {
			return fmt.Errorf("point %d (%g, %g): %w", i, p.Lat, p.Lon, ErrInvalidCoordinate)
		}
	}
	return nil
}
