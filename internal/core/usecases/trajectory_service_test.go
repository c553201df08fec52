package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/core/usecases"
)

// --- Mock TrajectoryRepository ---

type mockTrajectoryRepo struct {
	appendFn          func(ctx context.Context, traj *domain.Trajectory, offset int) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Trajectory, error)
	listFn            func(ctx context.Context, userID string, offset, limit int) ([]domain.Trajectory, int, error)
	saveSpeedFn       func(ctx context.Context, p *domain.SpeedProfile) error
	getSpeedProfileFn func(ctx context.Context, id string) (*domain.SpeedProfile, error)
}

func (m *mockTrajectoryRepo) AppendSamples(ctx context.Context, traj *domain.Trajectory, offset int) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, traj, offset)
	}
	traj.ID = "traj-1"
	return nil
}

func (m *mockTrajectoryRepo) GetByID(ctx context.Context, id string) (*domain.Trajectory, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTrajectoryRepo) List(ctx context.Context, userID string, offset, limit int) ([]domain.Trajectory, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockTrajectoryRepo) SaveSpeedProfile(ctx context.Context, p *domain.SpeedProfile) error {
	if m.saveSpeedFn != nil {
		return m.saveSpeedFn(ctx, p)
	}
	return nil
}

func (m *mockTrajectoryRepo) GetSpeedProfile(ctx context.Context, id string) (*domain.SpeedProfile, error) {
	if m.getSpeedProfileFn != nil {
		return m.getSpeedProfileFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

// memTrajectoryRepo keeps trajectories keyed by user and name, storing
// samples by position the way the Postgres repository does.
type memTrajectoryRepo struct {
	trajectories map[string]*domain.Trajectory
	samples      map[string]map[int]domain.PointSample
	profiles     map[string]*domain.SpeedProfile
	saveErrs     []error
}

func newMemTrajectoryRepo() *memTrajectoryRepo {
	return &memTrajectoryRepo{
		trajectories: make(map[string]*domain.Trajectory),
		samples:      make(map[string]map[int]domain.PointSample),
		profiles:     make(map[string]*domain.SpeedProfile),
	}
}

func (m *memTrajectoryRepo) AppendSamples(ctx context.Context, traj *domain.Trajectory, offset int) error {
	key := traj.UserID + "/" + traj.Name
	stored, ok := m.trajectories[key]
	if !ok {
		stored = &domain.Trajectory{ID: fmt.Sprintf("traj-%d", len(m.trajectories)+1), UserID: traj.UserID, Name: traj.Name}
		m.trajectories[key] = stored
		m.samples[stored.ID] = make(map[int]domain.PointSample)
	}
	for i, s := range traj.Samples {
		if _, dup := m.samples[stored.ID][offset+i]; !dup {
			m.samples[stored.ID][offset+i] = s
		}
	}
	traj.ID = stored.ID
	traj.NumPoints = len(m.samples[stored.ID])
	return nil
}

func (m *memTrajectoryRepo) GetByID(ctx context.Context, id string) (*domain.Trajectory, error) {
	for _, t := range m.trajectories {
		if t.ID != id {
			continue
		}
		out := *t
		byPos := m.samples[id]
		for i := 0; i < len(byPos); i++ {
			out.Samples = append(out.Samples, byPos[i])
		}
		out.NumPoints = len(out.Samples)
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memTrajectoryRepo) List(ctx context.Context, userID string, offset, limit int) ([]domain.Trajectory, int, error) {
	return nil, len(m.trajectories), nil
}

func (m *memTrajectoryRepo) SaveSpeedProfile(ctx context.Context, p *domain.SpeedProfile) error {
	if len(m.saveErrs) > 0 {
		err := m.saveErrs[0]
		m.saveErrs = m.saveErrs[1:]
		if err != nil {
			return err
		}
	}
	m.profiles[p.TrajectoryID] = p
	return nil
}

func (m *memTrajectoryRepo) GetSpeedProfile(ctx context.Context, id string) (*domain.SpeedProfile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

// --- Mock publisher / cache ---

type mockPublisher struct {
	profiles []*domain.SpeedProfile
	err      error
}

func (m *mockPublisher) PublishSampleBatch(ctx context.Context, b *domain.SampleBatch) error {
	return m.err
}

func (m *mockPublisher) PublishSpeedProfile(ctx context.Context, p *domain.SpeedProfile) error {
	m.profiles = append(m.profiles, p)
	return m.err
}

type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("miss")
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

// --- Fixtures ---

var base = time.Date(2008, 10, 23, 2, 53, 4, 0, time.UTC)

func sampleTrajectory(id string) *domain.Trajectory {
	samples := []domain.PointSample{
		{Location: domain.GeoPoint{Lat: 39.984702, Lon: 116.318417}, Time: base},
		{Location: domain.GeoPoint{Lat: 39.984683, Lon: 116.31845}, Time: base.Add(6 * time.Second)},
		{Location: domain.GeoPoint{Lat: 39.984686, Lon: 116.318417}, Time: base.Add(11 * time.Second)},
		{Location: domain.GeoPoint{Lat: 39.984688, Lon: 116.318385}, Time: base.Add(16 * time.Second)},
	}
	return &domain.Trajectory{ID: id, UserID: "000", Samples: samples, NumPoints: len(samples)}
}

// --- Tests ---

func TestTrajectoryService_Ingest(t *testing.T) {
	var saved *domain.SpeedProfile
	repo := &mockTrajectoryRepo{
		saveSpeedFn: func(ctx context.Context, p *domain.SpeedProfile) error {
			saved = p
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewTrajectoryService(repo, nil, pub, nil)

	// Out of order on purpose: ingest sorts by time.
	traj := sampleTrajectory("")
	samples := []domain.PointSample{traj.Samples[2], traj.Samples[0], traj.Samples[3], traj.Samples[1]}

	got, profile, err := svc.Ingest(context.Background(), &domain.SampleBatch{UserID: "000", Samples: samples})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "traj-1" {
		t.Errorf("expected id traj-1, got %s", got.ID)
	}
	if !got.StartedAt.Equal(base) || !got.EndedAt.Equal(base.Add(16*time.Second)) {
		t.Errorf("unexpected time span %v - %v", got.StartedAt, got.EndedAt)
	}
	if len(profile.Speeds) != 4 || profile.Speeds[0] != 0 {
		t.Fatalf("unexpected speeds %v", profile.Speeds)
	}
	if profile.DurationSeconds != 16 {
		t.Errorf("expected duration 16, got %d", profile.DurationSeconds)
	}
	if profile.TrajectoryID != "traj-1" {
		t.Errorf("profile not linked to trajectory: %q", profile.TrajectoryID)
	}
	if saved != profile {
		t.Error("profile was not persisted")
	}
	if len(pub.profiles) != 1 {
		t.Errorf("expected 1 published profile, got %d", len(pub.profiles))
	}
}

func TestTrajectoryService_Ingest_PublishFailureIsNotFatal(t *testing.T) {
	svc := usecases.NewTrajectoryService(&mockTrajectoryRepo{}, nil, &mockPublisher{err: errors.New("nats down")}, nil)
	_, _, err := svc.Ingest(context.Background(), &domain.SampleBatch{UserID: "000", Samples: sampleTrajectory("").Samples})
	if err != nil {
		t.Fatalf("publish failure should not fail ingest: %v", err)
	}
}

func TestTrajectoryService_Ingest_RedeliveryAfterFailedSave(t *testing.T) {
	repo := newMemTrajectoryRepo()
	repo.saveErrs = []error{errors.New("conn reset")}
	svc := usecases.NewTrajectoryService(repo, nil, nil, nil)
	batch := &domain.SampleBatch{UserID: "000", Name: "20081023025304", Samples: sampleTrajectory("").Samples}

	_, _, err := svc.Ingest(context.Background(), batch)
	if err == nil || domain.IsInputError(err) {
		t.Fatalf("expected a retryable error, got %v", err)
	}

	traj, profile, err := svc.Ingest(context.Background(), batch)
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if len(repo.trajectories) != 1 {
		t.Errorf("expected 1 trajectory after redelivery, got %d", len(repo.trajectories))
	}
	if traj.NumPoints != 4 || profile == nil || len(profile.Speeds) != 4 {
		t.Errorf("unexpected result: points=%d profile=%+v", traj.NumPoints, profile)
	}
	if repo.profiles[traj.ID] == nil {
		t.Error("profile was not saved on redelivery")
	}
}

func TestTrajectoryService_Ingest_UnnamedUsesStartTime(t *testing.T) {
	repo := newMemTrajectoryRepo()
	svc := usecases.NewTrajectoryService(repo, nil, nil, nil)
	batch := &domain.SampleBatch{UserID: "000", Samples: sampleTrajectory("").Samples}

	for i := 0; i < 2; i++ {
		traj, _, err := svc.Ingest(context.Background(), batch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if traj.Name != "20081023025304" {
			t.Errorf("expected name from start time, got %q", traj.Name)
		}
	}
	if len(repo.trajectories) != 1 {
		t.Errorf("expected replay to reuse the trajectory, got %d", len(repo.trajectories))
	}
}

func TestTrajectoryService_Ingest_ChunkedTrajectory(t *testing.T) {
	repo := newMemTrajectoryRepo()
	pub := &mockPublisher{}
	svc := usecases.NewTrajectoryService(repo, nil, pub, nil)
	samples := sampleTrajectory("").Samples

	// The tail arrives first; the profile waits for the head.
	tail := &domain.SampleBatch{UserID: "000", Name: "20081023025304", Offset: 3, Total: 4, Samples: samples[3:]}
	traj, profile, err := svc.Ingest(context.Background(), tail)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if profile != nil || traj.NumPoints != 1 {
		t.Fatalf("expected incomplete trajectory, got points=%d profile=%v", traj.NumPoints, profile)
	}

	head := &domain.SampleBatch{UserID: "000", Name: "20081023025304", Total: 4, Samples: samples[:3]}
	traj, profile, err = svc.Ingest(context.Background(), head)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if len(repo.trajectories) != 1 {
		t.Fatalf("expected one trajectory, got %d", len(repo.trajectories))
	}
	if profile == nil || len(profile.Speeds) != 4 {
		t.Fatalf("expected a profile over all 4 samples, got %+v", profile)
	}
	if profile.Speeds[0] != 0 || profile.Speeds[3] <= 0 {
		t.Errorf("expected speed across the chunk boundary, got %v", profile.Speeds)
	}
	if traj.NumPoints != 4 || len(traj.Samples) != 4 {
		t.Errorf("expected full trajectory, got %d points", traj.NumPoints)
	}
	if len(pub.profiles) != 1 {
		t.Errorf("expected 1 published profile, got %d", len(pub.profiles))
	}
}

func TestTrajectoryService_Ingest_Validation(t *testing.T) {
	svc := usecases.NewTrajectoryService(&mockTrajectoryRepo{
		appendFn: func(ctx context.Context, traj *domain.Trajectory, offset int) error {
			t.Error("repo must not be called for invalid input")
			return nil
		},
	}, nil, nil, nil)

	tests := []struct {
		name  string
		batch *domain.SampleBatch
		want  error
	}{
		{"empty", &domain.SampleBatch{UserID: "000"}, domain.ErrEmptySequence},
		{"no user", &domain.SampleBatch{Samples: sampleTrajectory("").Samples}, domain.ErrInvalidArgument},
		{"offset past total", &domain.SampleBatch{UserID: "000", Offset: 3, Total: 4, Samples: sampleTrajectory("").Samples}, domain.ErrInvalidArgument},
		{"negative offset", &domain.SampleBatch{UserID: "000", Offset: -1, Samples: sampleTrajectory("").Samples}, domain.ErrInvalidArgument},
		{"bad latitude", &domain.SampleBatch{UserID: "000", Samples: []domain.PointSample{
			{Location: domain.GeoPoint{Lat: 91, Lon: 0}, Time: base},
		}}, domain.ErrInvalidCoordinate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Ingest(context.Background(), tt.batch)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTrajectoryService_SpeedProfile_ComputesWhenMissing(t *testing.T) {
	saves := 0
	repo := &mockTrajectoryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Trajectory, error) {
			return sampleTrajectory(id), nil
		},
		saveSpeedFn: func(ctx context.Context, p *domain.SpeedProfile) error {
			saves++
			return nil
		},
	}
	cache := newMemCache()
	svc := usecases.NewTrajectoryService(repo, cache, nil, nil)

	profile, err := svc.SpeedProfile(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.TrajectoryID != "abc" || len(profile.Speeds) != 4 {
		t.Errorf("unexpected profile %+v", profile)
	}
	if saves != 1 {
		t.Errorf("expected profile saved once, got %d", saves)
	}
	if _, ok := cache.data["traj:speeds:abc"]; !ok {
		t.Error("profile was not cached")
	}

	// Second call is served from cache.
	repo.getByIDFn = func(ctx context.Context, id string) (*domain.Trajectory, error) {
		t.Error("repo should not be hit on cache hit")
		return nil, domain.ErrNotFound
	}
	if _, err := svc.SpeedProfile(context.Background(), "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTrajectoryService_SpeedProfile_Stored(t *testing.T) {
	repo := &mockTrajectoryRepo{
		getSpeedProfileFn: func(ctx context.Context, id string) (*domain.SpeedProfile, error) {
			return &domain.SpeedProfile{TrajectoryID: id, Speeds: []float64{0, 1.5}}, nil
		},
	}
	svc := usecases.NewTrajectoryService(repo, nil, nil, nil)
	profile, err := svc.SpeedProfile(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profile.Speeds) != 2 || profile.Speeds[1] != 1.5 {
		t.Errorf("expected stored profile, got %+v", profile)
	}
}

func TestTrajectoryService_SpeedProfile_NotFound(t *testing.T) {
	svc := usecases.NewTrajectoryService(&mockTrajectoryRepo{}, nil, nil, nil)
	if _, err := svc.SpeedProfile(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTrajectoryService_Centroid_Cached(t *testing.T) {
	cache := newMemCache()
	data, _ := json.Marshal(domain.GeoPoint{Lat: 1, Lon: 2})
	cache.data["traj:centroid:abc"] = data

	svc := usecases.NewTrajectoryService(&mockTrajectoryRepo{}, cache, nil, nil)
	c, err := svc.Centroid(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 1 || c.Lon != 2 {
		t.Errorf("expected cached centroid, got %v", c)
	}
}

func TestTrajectoryService_Centroid(t *testing.T) {
	repo := &mockTrajectoryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Trajectory, error) {
			return sampleTrajectory(id), nil
		},
	}
	svc := usecases.NewTrajectoryService(repo, nil, nil, nil)
	c, err := svc.Centroid(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat < 39.9846 || c.Lat > 39.9848 || c.Lon < 116.3183 || c.Lon > 116.3185 {
		t.Errorf("centroid %v outside sample cluster", c)
	}
}

func TestTrajectoryService_List_ClampLimit(t *testing.T) {
	called := false
	repo := &mockTrajectoryRepo{
		listFn: func(ctx context.Context, userID string, offset, limit int) ([]domain.Trajectory, int, error) {
			called = true
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected offset clamped to 0, got %d", offset)
			}
			return nil, 0, nil
		},
	}
	svc := usecases.NewTrajectoryService(repo, nil, nil, nil)
	_, _, _ = svc.List(context.Background(), "", -5, 999)
	if !called {
		t.Error("repo was not called")
	}
}

func TestBuildSpeedProfile(t *testing.T) {
	traj := sampleTrajectory("x")
	profile, err := usecases.BuildSpeedProfile(traj, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.TotalDistance <= 0 {
		t.Errorf("expected positive distance, got %f", profile.TotalDistance)
	}
	for _, v := range profile.Speeds {
		if v > profile.MaxSpeed {
			t.Errorf("speed %f exceeds max %f", v, profile.MaxSpeed)
		}
	}
	want := profile.TotalDistance / 16
	if profile.MeanSpeed != want {
		t.Errorf("expected mean %f, got %f", want, profile.MeanSpeed)
	}
}
