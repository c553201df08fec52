package usecases

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/core/ports"
	"github.com/samirrijal/trajprep/internal/pkg/geospatial"
	"github.com/samirrijal/trajprep/internal/pkg/logging"
	"github.com/samirrijal/trajprep/internal/pkg/mapview"
	"github.com/samirrijal/trajprep/internal/pkg/metrics"
	"github.com/samirrijal/trajprep/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/trajprep/internal/core/usecases")

// TrajectoryService handles storage of trajectories and the values derived from them.
type TrajectoryService struct {
	trajectories ports.TrajectoryRepository
	cache        ports.CacheService
	publisher    ports.EventPublisher
	geo          *GeoService
	now          func() time.Time
}

// NewTrajectoryService creates a new TrajectoryService. cache and publisher may be nil.
func NewTrajectoryService(
	trajectories ports.TrajectoryRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	geo *GeoService,
) *TrajectoryService {
	if geo == nil {
		geo = NewGeoService(MapDefaults{})
	}
	return &TrajectoryService{
		trajectories: trajectories,
		cache:        cache,
		publisher:    publisher,
		geo:          geo,
		now:          time.Now,
	}
}

// Ingest appends a batch of samples to its trajectory. Once every sample of
// the trajectory is stored it computes, saves and publishes the speed
// profile; until then the returned profile is nil. Replaying a batch is
// harmless, so a batch whose profile save failed can be redelivered.
func (s *TrajectoryService) Ingest(ctx context.Context, batch *domain.SampleBatch) (*domain.Trajectory, *domain.SpeedProfile, error) {
	ctx, span := tracer.Start(ctx, "TrajectoryService.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", batch.UserID), attribute.Int("samples", len(batch.Samples)))

	traj, profile, err := s.ingest(ctx, batch)
	telemetry.RecordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("trajectory_id", traj.ID))
	}
	return traj, profile, err
}

// DefaultNameLayout names trajectories that arrive without a name after
// their first sample's UTC time, the way GeoLife names its files.
const DefaultNameLayout = "20060102150405"

func (s *TrajectoryService) ingest(ctx context.Context, batch *domain.SampleBatch) (*domain.Trajectory, *domain.SpeedProfile, error) {
	if batch.UserID == "" {
		return nil, nil, fmt.Errorf("user id must not be empty: %w", domain.ErrInvalidArgument)
	}
	if len(batch.Samples) == 0 {
		return nil, nil, domain.ErrEmptySequence
	}
	total := batch.Total
	if total == 0 {
		total = batch.Offset + len(batch.Samples)
	}
	if batch.Offset < 0 || batch.Offset+len(batch.Samples) > total {
		return nil, nil, fmt.Errorf("samples %d..%d outside trajectory of %d: %w",
			batch.Offset, batch.Offset+len(batch.Samples), total, domain.ErrInvalidArgument)
	}

	samples := slices.Clone(batch.Samples)
	slices.SortStableFunc(samples, func(a, b domain.PointSample) int {
		return a.Time.Compare(b.Time)
	})

	name := batch.Name
	if name == "" {
		name = samples[0].Time.UTC().Format(DefaultNameLayout)
	}
	traj := &domain.Trajectory{
		UserID:    batch.UserID,
		Name:      name,
		Samples:   samples,
		NumPoints: len(samples),
		StartedAt: samples[0].Time,
		EndedAt:   samples[len(samples)-1].Time,
	}
	if err := traj.Sequence().ValidateCoordinates(); err != nil {
		return nil, nil, reject("ingest", err)
	}

	if err := s.trajectories.AppendSamples(ctx, traj, batch.Offset); err != nil {
		return nil, nil, fmt.Errorf("append samples: %w", err)
	}
	metrics.SamplesIngested.WithLabelValues("batch").Add(float64(len(samples)))

	if traj.NumPoints < total {
		logging.FromContext(ctx).DebugContext(ctx, "trajectory incomplete",
			"trajectory_id", traj.ID, "stored", traj.NumPoints, "total", total)
		return traj, nil, nil
	}

	// Earlier batches hold the rest of the samples.
	if traj.NumPoints != len(samples) {
		full, err := s.trajectories.GetByID(ctx, traj.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load trajectory: %w", err)
		}
		traj = full
	}

	profile, err := BuildSpeedProfile(traj, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.trajectories.SaveSpeedProfile(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("save speed profile: %w", err)
	}
	s.dropCached(ctx, SpeedProfileCacheKey(traj.ID))

	if s.publisher != nil {
		if err := s.publisher.PublishSpeedProfile(ctx, profile); err != nil {
			logging.FromContext(ctx).WarnContext(ctx, "publish speed profile failed", "trajectory_id", traj.ID, "error", err)
		}
	}

	return traj, profile, nil
}

// Get returns a trajectory with its samples.
func (s *TrajectoryService) Get(ctx context.Context, id string) (*domain.Trajectory, error) {
	if id == "" {
		return nil, fmt.Errorf("trajectory id must not be empty: %w", domain.ErrInvalidArgument)
	}
	return s.trajectories.GetByID(ctx, id)
}

// List returns a page of trajectories, optionally filtered by user.
func (s *TrajectoryService) List(ctx context.Context, userID string, offset, limit int) ([]domain.Trajectory, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.trajectories.List(ctx, userID, offset, limit)
}

// SpeedProfile returns the stored speed profile for a trajectory, computing
// and persisting it on first access.
func (s *TrajectoryService) SpeedProfile(ctx context.Context, id string) (*domain.SpeedProfile, error) {
	ctx, span := tracer.Start(ctx, "TrajectoryService.SpeedProfile")
	defer span.End()
	span.SetAttributes(attribute.String("trajectory_id", id))

	profile, err := s.speedProfile(ctx, id)
	telemetry.RecordError(span, err)
	return profile, err
}

func (s *TrajectoryService) speedProfile(ctx context.Context, id string) (*domain.SpeedProfile, error) {
	cacheKey := SpeedProfileCacheKey(id)
	var profile domain.SpeedProfile
	if s.getCached(ctx, "speed_profile", cacheKey, &profile) {
		return &profile, nil
	}

	stored, err := s.trajectories.GetSpeedProfile(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		traj, err := s.trajectories.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		stored, err = BuildSpeedProfile(traj, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.trajectories.SaveSpeedProfile(ctx, stored); err != nil {
			return nil, fmt.Errorf("save speed profile: %w", err)
		}
	default:
		return nil, err
	}

	s.setCached(ctx, cacheKey, stored, 600)
	return stored, nil
}

// SpeedProfileCacheKey is the cache key under which a trajectory's speed
// profile is stored.
func SpeedProfileCacheKey(trajectoryID string) string {
	return "traj:speeds:" + trajectoryID
}

// Centroid returns the spherical centroid of a stored trajectory.
func (s *TrajectoryService) Centroid(ctx context.Context, id string) (*domain.GeoPoint, error) {
	ctx, span := tracer.Start(ctx, "TrajectoryService.Centroid")
	defer span.End()

	cacheKey := "traj:centroid:" + id
	var c domain.GeoPoint
	if s.getCached(ctx, "centroid", cacheKey, &c) {
		return &c, nil
	}

	traj, err := s.trajectories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err = s.geo.Centroid(traj.Sequence())
	if err != nil {
		return nil, err
	}

	s.setCached(ctx, cacheKey, c, 3600)
	return &c, nil
}

// Map builds a map of a stored trajectory's samples.
func (s *TrajectoryService) Map(ctx context.Context, id string, zoom int) (*mapview.Map, error) {
	traj, err := s.trajectories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.geo.Map(traj.Sequence(), zoom)
}

// BuildSpeedProfile derives point-to-point speeds and summary figures from
// a trajectory's samples.
func BuildSpeedProfile(traj *domain.Trajectory, now time.Time) (*domain.SpeedProfile, error) {
	start := time.Now()
	defer func() { metrics.SpeedProfileDuration.Observe(time.Since(start).Seconds()) }()

	seq := traj.Sequence()
	speeds, err := geospatial.SpeedProfile(seq)
	if err != nil {
		return nil, fmt.Errorf("speed profile: %w", err)
	}
	distance, err := geospatial.PathLength(seq)
	if err != nil {
		return nil, fmt.Errorf("path length: %w", err)
	}

	profile := &domain.SpeedProfile{
		TrajectoryID:  traj.ID,
		Speeds:        speeds,
		TotalDistance: distance,
		ComputedAt:    now.UTC(),
	}
	if n := len(speeds); n > 0 {
		profile.MaxSpeed = slices.MaxFunc(speeds, cmp.Compare[float64])
		profile.DurationSeconds = geospatial.TimeDelta(seq.Times[0], seq.Times[n-1])
	}
	if profile.DurationSeconds > 0 {
		profile.MeanSpeed = distance / float64(profile.DurationSeconds)
	}

	metrics.SpeedProfilesComputed.Inc()
	return profile, nil
}

func (s *TrajectoryService) getCached(ctx context.Context, op, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *TrajectoryService) dropCached(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, key)
}

func (s *TrajectoryService) setCached(ctx context.Context, key string, v any, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, ttlSeconds)
	}
}
