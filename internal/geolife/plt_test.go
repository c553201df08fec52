package geolife_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/geolife"
)

const samplePLT = `Geolife trajectory
WGS 84
Altitude is in Feet
Reserved 3
0,2,255,My Track,0,0,2,8421376
0
39.984702,116.318417,0,492,39744.1201851852,2008-10-23,02:53:04
39.984683,116.31845,0,492,39744.1202546296,2008-10-23,02:53:10
39.984686,116.318417,0,492,39744.1203125,2008-10-23,02:53:15
`

func TestParsePLT(t *testing.T) {
	samples, err := geolife.ParsePLT(strings.NewReader(samplePLT))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	first := samples[0]
	if first.Location != (domain.GeoPoint{Lat: 39.984702, Lon: 116.318417}) {
		t.Errorf("unexpected location %+v", first.Location)
	}
	want := time.Date(2008, 10, 23, 2, 53, 4, 0, time.UTC)
	if !first.Time.Equal(want) {
		t.Errorf("expected %v, got %v", want, first.Time)
	}
	if d := samples[2].Time.Sub(samples[1].Time); d != 5*time.Second {
		t.Errorf("expected 5s between samples, got %v", d)
	}
}

func TestParsePLT_DayCountFallback(t *testing.T) {
	data := strings.Replace(samplePLT, "2008-10-23,02:53:04", "bad-date,??", 1)
	samples, err := geolife.ParsePLT(strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2008, 10, 23, 2, 53, 4, 0, time.UTC)
	if !samples[0].Time.Equal(want) {
		t.Errorf("expected %v from day count, got %v", want, samples[0].Time)
	}
}

func TestParsePLT_TruncatedHeader(t *testing.T) {
	_, err := geolife.ParsePLT(strings.NewReader("Geolife trajectory\nWGS 84\n"))
	if !errors.Is(err, geolife.ErrTruncatedHeader) {
		t.Errorf("expected ErrTruncatedHeader, got %v", err)
	}
}

func TestParsePLT_BadLatitude(t *testing.T) {
	data := strings.Replace(samplePLT, "39.984683", "north", 1)
	_, err := geolife.ParsePLT(strings.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "line 8") {
		t.Errorf("expected error on line 8, got %v", err)
	}
}

func TestTrajectoryRef(t *testing.T) {
	tests := []struct {
		path, user, name string
	}{
		{"Data/000/Trajectory/20081023025304.plt", "000", "20081023025304"},
		{"/srv/geolife/Data/163/Trajectory/20090401120000.plt", "163", "20090401120000"},
		{"walks/42/morning.plt", "42", "morning"},
		{"solo.plt", "", "solo"},
	}
	for _, tt := range tests {
		user, name := geolife.TrajectoryRef(tt.path)
		if user != tt.user || name != tt.name {
			t.Errorf("TrajectoryRef(%q) = (%q, %q), want (%q, %q)", tt.path, user, name, tt.user, tt.name)
		}
	}
}

func TestBatches_OneSampleTail(t *testing.T) {
	samples := make([]domain.PointSample, 5001)
	batches := geolife.Batches("000", "20081023025304", samples, 5000)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	tail := batches[1]
	if tail.Name != "20081023025304" || tail.Offset != 5000 || tail.Total != 5001 || len(tail.Samples) != 1 {
		t.Errorf("tail must continue the same trajectory, got %s offset=%d total=%d samples=%d",
			tail.Name, tail.Offset, tail.Total, len(tail.Samples))
	}
}

func TestBatches(t *testing.T) {
	samples := make([]domain.PointSample, 7)
	batches := geolife.Batches("000", "walk", samples, 3)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	sizes := []int{3, 3, 1}
	offsets := []int{0, 3, 6}
	for i, b := range batches {
		if len(b.Samples) != sizes[i] || b.Offset != offsets[i] {
			t.Errorf("batch %d: got offset %d with %d samples", i, b.Offset, len(b.Samples))
		}
		if b.Name != "walk" || b.UserID != "000" || b.Total != 7 {
			t.Errorf("batch %d: expected part of 000/walk of 7, got %s/%s of %d", i, b.UserID, b.Name, b.Total)
		}
	}

	if got := geolife.Batches("000", "walk", samples, 0); len(got) != 1 {
		t.Errorf("expected a single batch for size 0, got %d", len(got))
	}
	if got := geolife.Batches("000", "walk", nil, 3); len(got) != 0 {
		t.Errorf("expected no batches for no samples, got %d", len(got))
	}
}
