package domain

import (
	"time"
)

// Trajectory is an ordered series of GPS samples recorded by one user.
type Trajectory struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name,omitempty"`
	Samples   []PointSample `json:"samples,omitempty"`
	NumPoints int           `json:"num_points"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	CreatedAt time.Time     `json:"created_at"`
}

// Sequence returns the trajectory's samples as parallel arrays.
func (t *Trajectory) Sequence() PointSequence {
	return SequenceFromSamples(t.Samples)
}

// SampleBatch is a chunk of one trajectory's samples, as carried on the wire
// between the ingestor and the processor. A trajectory is identified by
// UserID and Name; Samples[i] is sample Offset+i of Total. Total of 0 means
// the batch ends the trajectory.
type SampleBatch struct {
	UserID  string        `json:"user_id"`
	Name    string        `json:"name,omitempty"`
	Offset  int           `json:"offset,omitempty"`
	Total   int           `json:"total,omitempty"`
	Samples []PointSample `json:"samples"`
}

// SpeedProfile holds the point-to-point speeds derived from a trajectory.
// Speeds[i] is the speed from sample i-1 to sample i; Speeds[0] is 0.
type SpeedProfile struct {
	TrajectoryID    string    `json:"trajectory_id"`
	Speeds          []float64 `json:"speeds"` // m/s
	MaxSpeed        float64   `json:"max_speed"`
	MeanSpeed       float64   `json:"mean_speed"`
	TotalDistance   float64   `json:"total_distance"` // meters
	DurationSeconds int64     `json:"duration_seconds"`
	ComputedAt      time.Time `json:"computed_at"`
}
