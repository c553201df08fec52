package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// DefaultTaskQueue is the queue cmd/worker polls unless configured otherwise.
const DefaultTaskQueue = "trajectory-preprocessing"

// PreprocessInput is the input for the preprocessing workflow.
type PreprocessInput struct {
	TrajectoryID string
}

// PreprocessResult summarises a completed run.
type PreprocessResult struct {
	TrajectoryID  string
	Points        int
	MaxSpeed      float64
	TotalDistance float64
	Published     bool
}

// PreprocessTrajectoryWorkflow computes and stores the speed profile of a
// trajectory, then publishes it. A failed publish is logged and reported in
// the result; the stored profile stays in place.
func PreprocessTrajectoryWorkflow(ctx workflow.Context, input PreprocessInput) (*PreprocessResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting preprocessing workflow", "trajectoryID", input.TrajectoryID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	var profile domain.SpeedProfile
	if err := workflow.ExecuteActivity(ctx, ComputeSpeedProfileActivity, input.TrajectoryID).Get(ctx, &profile); err != nil {
		return nil, err
	}

	if err := workflow.ExecuteActivity(ctx, SaveSpeedProfileActivity, &profile).Get(ctx, nil); err != nil {
		return nil, err
	}

	result := &PreprocessResult{
		TrajectoryID:  input.TrajectoryID,
		Points:        len(profile.Speeds),
		MaxSpeed:      profile.MaxSpeed,
		TotalDistance: profile.TotalDistance,
	}

	if err := workflow.ExecuteActivity(ctx, PublishSpeedProfileActivity, &profile).Get(ctx, nil); err != nil {
		logger.Warn("publish failed, profile stored but not announced", "error", err)
		return result, nil
	}
	result.Published = true

	logger.Info("Preprocessing complete", "points", result.Points)
	return result, nil
}
