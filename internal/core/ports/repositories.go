package ports

import (
	"context"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// TrajectoryRepository persists trajectories, their samples and derived speed profiles.
type TrajectoryRepository interface {
	// AppendSamples stores traj.Samples as samples offset.. of the trajectory
	// keyed by (traj.UserID, traj.Name), creating it if needed. Samples already
	// stored at those positions are kept, so a replayed batch changes nothing.
	// It fills in ID and CreatedAt, and sets NumPoints, StartedAt and EndedAt
	// to the totals of everything stored so far.
	AppendSamples(ctx context.Context, traj *domain.Trajectory, offset int) error
	GetByID(ctx context.Context, id string) (*domain.Trajectory, error)
	// List returns a page of trajectories (without samples) and the total count.
	List(ctx context.Context, userID string, offset, limit int) ([]domain.Trajectory, int, error)
	SaveSpeedProfile(ctx context.Context, profile *domain.SpeedProfile) error
	GetSpeedProfile(ctx context.Context, trajectoryID string) (*domain.SpeedProfile, error)
}
