package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/core/ports"
	"github.com/samirrijal/trajprep/internal/core/usecases"
)

// Activity names, as registered from PreprocessActivities' methods.
const (
	ComputeSpeedProfileActivity = "ComputeSpeedProfile"
	SaveSpeedProfileActivity    = "SaveSpeedProfile"
	PublishSpeedProfileActivity = "PublishSpeedProfile"
)

// PreprocessActivities holds the activity implementations for the
// preprocessing workflow.
type PreprocessActivities struct {
	Trajectories ports.TrajectoryRepository
	Publisher    ports.EventPublisher
	// Cache, when set, has its copy of a profile dropped after a save.
	Cache ports.CacheService
	Now   func() time.Time
}

// ComputeSpeedProfile loads a trajectory and derives its speed profile.
// Missing trajectories and malformed samples fail without retry.
func (a *PreprocessActivities) ComputeSpeedProfile(ctx context.Context, trajectoryID string) (*domain.SpeedProfile, error) {
	traj, err := a.Trajectories.GetByID(ctx, trajectoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("trajectory %s not found", trajectoryID), "NotFound", err)
		}
		return nil, fmt.Errorf("load trajectory %s: %w", trajectoryID, err)
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	profile, err := usecases.BuildSpeedProfile(traj, now())
	if err != nil {
		if domain.IsInputError(err) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidTrajectory", err)
		}
		return nil, err
	}
	activity.GetLogger(ctx).Info("speed profile computed", "trajectory_id", trajectoryID, "points", len(profile.Speeds))
	return profile, nil
}

// SaveSpeedProfile persists a computed profile.
func (a *PreprocessActivities) SaveSpeedProfile(ctx context.Context, profile *domain.SpeedProfile) error {
	if err := a.Trajectories.SaveSpeedProfile(ctx, profile); err != nil {
		return fmt.Errorf("save speed profile %s: %w", profile.TrajectoryID, err)
	}
	if a.Cache != nil {
		if err := a.Cache.Delete(ctx, usecases.SpeedProfileCacheKey(profile.TrajectoryID)); err != nil {
			activity.GetLogger(ctx).Warn("drop cached speed profile failed", "trajectory_id", profile.TrajectoryID, "error", err)
		}
	}
	return nil
}

// PublishSpeedProfile announces a stored profile. Without a publisher it is a no-op.
func (a *PreprocessActivities) PublishSpeedProfile(ctx context.Context, profile *domain.SpeedProfile) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Warn("no publisher configured, profile not announced", "trajectory_id", profile.TrajectoryID)
		return nil
	}
	return a.Publisher.PublishSpeedProfile(ctx, profile)
}
