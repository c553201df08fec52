package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// TrajectoryRepo implements ports.TrajectoryRepository.
type TrajectoryRepo struct {
	db *DB
}

func NewTrajectoryRepo(db *DB) *TrajectoryRepo {
	return &TrajectoryRepo{db: db}
}

// AppendSamples upserts the trajectory row, inserts the samples that are not
// stored yet and refreshes the row's totals, all in one transaction.
func (r *TrajectoryRepo) AppendSamples(ctx context.Context, traj *domain.Trajectory, offset int) error {
	n := len(traj.Samples)
	seqs := make([]int32, n)
	times := make([]time.Time, n)
	lats := make([]float64, n)
	lons := make([]float64, n)
	for i, s := range traj.Samples {
		seqs[i] = int32(offset + i)
		times[i] = s.Time
		lats[i] = s.Location.Lat
		lons[i] = s.Location.Lon
	}

	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO trajectories (user_id, name, num_points, started_at, ended_at)
			VALUES ($1, $2, 0, $3, $4)
			ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, created_at
		`, traj.UserID, traj.Name, traj.StartedAt, traj.EndedAt,
		).Scan(&traj.ID, &traj.CreatedAt)
		if err != nil {
			return fmt.Errorf("upsert trajectory: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO trajectory_samples (trajectory_id, seq, time, lat, lon)
			SELECT $1, s.seq, s.time, s.lat, s.lon
			FROM unnest($2::integer[], $3::timestamptz[], $4::double precision[], $5::double precision[])
				AS s(seq, time, lat, lon)
			ON CONFLICT (trajectory_id, seq) DO NOTHING
		`, traj.ID, seqs, times, lats, lons)
		if err != nil {
			return fmt.Errorf("insert samples: %w", err)
		}

		err = tx.QueryRow(ctx, `
			UPDATE trajectories t
			SET num_points = s.n, started_at = s.first, ended_at = s.last
			FROM (
				SELECT count(*) AS n, min(time) AS first, max(time) AS last
				FROM trajectory_samples WHERE trajectory_id = $1
			) s
			WHERE t.id = $1
			RETURNING t.num_points, t.started_at, t.ended_at
		`, traj.ID).Scan(&traj.NumPoints, &traj.StartedAt, &traj.EndedAt)
		if err != nil {
			return fmt.Errorf("refresh trajectory totals: %w", err)
		}
		return nil
	})
}

// GetByID returns the trajectory with its samples in sequence order. An id
// that is not a UUID cannot exist and yields domain.ErrNotFound.
func (r *TrajectoryRepo) GetByID(ctx context.Context, id string) (*domain.Trajectory, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	var t domain.Trajectory
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, name, num_points, started_at, ended_at, created_at
		FROM trajectories WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.Name, &t.NumPoints, &t.StartedAt, &t.EndedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trajectory: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT time, lat, lon FROM trajectory_samples
		WHERE trajectory_id = $1
		ORDER BY time, seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get samples: %w", err)
	}
	defer rows.Close()

	t.Samples = make([]domain.PointSample, 0, t.NumPoints)
	for rows.Next() {
		var s domain.PointSample
		if err := rows.Scan(&s.Time, &s.Location.Lat, &s.Location.Lon); err != nil {
			return nil, err
		}
		t.Samples = append(t.Samples, s)
	}
	return &t, rows.Err()
}

func (r *TrajectoryRepo) List(ctx context.Context, userID string, offset, limit int) ([]domain.Trajectory, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM trajectories WHERE ($1 = '' OR user_id = $1)
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trajectories: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, name, num_points, started_at, ended_at, created_at
		FROM trajectories
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY started_at DESC, id
		OFFSET $2 LIMIT $3
	`, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list trajectories: %w", err)
	}
	defer rows.Close()

	var out []domain.Trajectory
	for rows.Next() {
		var t domain.Trajectory
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.NumPoints, &t.StartedAt, &t.EndedAt, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *TrajectoryRepo) SaveSpeedProfile(ctx context.Context, p *domain.SpeedProfile) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO speed_profiles (trajectory_id, speeds, max_speed, mean_speed, total_distance, duration_seconds, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trajectory_id) DO UPDATE SET
			speeds = EXCLUDED.speeds,
			max_speed = EXCLUDED.max_speed,
			mean_speed = EXCLUDED.mean_speed,
			total_distance = EXCLUDED.total_distance,
			duration_seconds = EXCLUDED.duration_seconds,
			computed_at = EXCLUDED.computed_at
	`, p.TrajectoryID, p.Speeds, p.MaxSpeed, p.MeanSpeed, p.TotalDistance, p.DurationSeconds, p.ComputedAt)
	if err != nil {
		return fmt.Errorf("save speed profile: %w", err)
	}
	return nil
}

func (r *TrajectoryRepo) GetSpeedProfile(ctx context.Context, trajectoryID string) (*domain.SpeedProfile, error) {
	if !validID(trajectoryID) {
		return nil, domain.ErrNotFound
	}
	var p domain.SpeedProfile
	err := r.db.Pool.QueryRow(ctx, `
		SELECT trajectory_id, speeds, max_speed, mean_speed, total_distance, duration_seconds, computed_at
		FROM speed_profiles WHERE trajectory_id = $1
	`, trajectoryID).Scan(&p.TrajectoryID, &p.Speeds, &p.MaxSpeed, &p.MeanSpeed,
		&p.TotalDistance, &p.DurationSeconds, &p.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get speed profile: %w", err)
	}
	return &p, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
