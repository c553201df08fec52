// Package geolife reads trajectories in the Microsoft GeoLife .plt format.
//
// A .plt file starts with six header lines, followed by one sample per line:
//
//	lat,lon,0,altitude_feet,days_since_1899-12-30,date,time
//
// Times are UTC.
package geolife

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

const headerLines = 6

// epoch is the origin of the fractional day column.
var epoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ErrTruncatedHeader is returned for files shorter than the fixed header.
var ErrTruncatedHeader = errors.New("geolife: truncated header")

// ParsePLT reads all samples from a .plt stream.
func ParsePLT(r io.Reader) ([]domain.PointSample, error) {
	br := bufio.NewReader(r)
	for i := 0; i < headerLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, ErrTruncatedHeader
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var samples []domain.PointSample
	for line := headerLines + 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		s, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseRecord(rec []string) (domain.PointSample, error) {
	if len(rec) < 5 {
		return domain.PointSample{}, fmt.Errorf("expected at least 5 fields, got %d", len(rec))
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return domain.PointSample{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return domain.PointSample{}, fmt.Errorf("longitude: %w", err)
	}

	t, err := parseTime(rec)
	if err != nil {
		return domain.PointSample{}, err
	}
	return domain.PointSample{Location: domain.GeoPoint{Lat: lat, Lon: lon}, Time: t}, nil
}

// parseTime prefers the date and time columns and falls back to the
// fractional day count.
func parseTime(rec []string) (time.Time, error) {
	if len(rec) >= 7 {
		t, err := time.Parse("2006-01-02 15:04:05", strings.TrimSpace(rec[5])+" "+strings.TrimSpace(rec[6]))
		if err == nil {
			return t, nil
		}
	}
	days, err := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp: %w", err)
	}
	secs := math.Round(days * 86400)
	return epoch.Add(time.Duration(secs) * time.Second), nil
}

// TrajectoryRef derives the user ID and trajectory name from a path laid out
// as <user>/Trajectory/<name>.plt. Paths outside that layout use the parent
// directory as the user.
func TrajectoryRef(path string) (userID, name string) {
	path = filepath.ToSlash(path)
	name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Base(filepath.Dir(path))
	if strings.EqualFold(dir, "Trajectory") {
		dir = filepath.Base(filepath.Dir(filepath.Dir(path)))
	}
	if dir == "." || dir == "/" {
		dir = ""
	}
	return dir, name
}

// Batches splits one trajectory's samples into batches of at most size
// samples for transport. Every batch carries the trajectory's name, its
// position and the total count, so the parts are stored as one trajectory.
func Batches(userID, name string, samples []domain.PointSample, size int) []domain.SampleBatch {
	if size <= 0 {
		size = len(samples)
	}
	var out []domain.SampleBatch
	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))
		out = append(out, domain.SampleBatch{
			UserID:  userID,
			Name:    name,
			Offset:  start,
			Total:   len(samples),
			Samples: samples[start:end],
		})
	}
	return out
}
