package http

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/pkg/mapview"
	"github.com/samirrijal/trajprep/internal/pkg/metrics"
)

const (
	defaultPNGWidth  = 640
	defaultPNGHeight = 480
	maxPNGSide       = 2048
)

type pointRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p pointRequest) point() domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat, Lon: p.Lon}
}

type sampleRequest struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"time"`
}

func (s sampleRequest) sample() domain.PointSample {
	return domain.PointSample{Location: domain.GeoPoint{Lat: s.Lat, Lon: s.Lon}, Time: s.Time}
}

type distanceRequest struct {
	From pointRequest `json:"from"`
	To   pointRequest `json:"to"`
}

type timeDeltaRequest struct {
	T1 time.Time `json:"t1"`
	T2 time.Time `json:"t2"`
}

type speedRequest struct {
	From sampleRequest `json:"from"`
	To   sampleRequest `json:"to"`
}

type speedsRequest struct {
	From domain.PointSequence `json:"from"`
	To   domain.PointSequence `json:"to"`
}

type createTrajectoryRequest struct {
	UserID  string          `json:"user_id"`
	Name    string          `json:"name"`
	Samples []sampleRequest `json:"samples"`
}

// DistanceHandler returns the great-circle distance between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req distanceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		meters, err := deps.Geo.Distance(req.From.point(), req.To.point())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"meters": meters})
	}
}

// TimeDeltaHandler returns the absolute difference of two timestamps in seconds.
func TimeDeltaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req timeDeltaRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		return c.JSON(fiber.Map{"seconds": deps.Geo.TimeDelta(req.T1, req.T2)})
	}
}

// SpeedHandler returns the speed in m/s between two timed samples.
func SpeedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req speedRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		speed, err := deps.Geo.Speed(req.From.sample(), req.To.sample())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"speed_mps": speed})
	}
}

// SpeedsHandler applies the speed computation element-wise over two sequences.
func SpeedsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req speedsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		speeds, err := deps.Geo.Speeds(req.From, req.To)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"speeds": speeds})
	}
}

// CentroidHandler returns the spherical centroid of a set of points.
func CentroidHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PointSequence
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		centroid, err := deps.Geo.Centroid(req)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(centroid)
	}
}

// MapHandler renders the posted points as an HTML map.
func MapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PointSequence
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		m, err := deps.Geo.Map(req, c.QueryInt("zoom", 0))
		if err != nil {
			return errFromDomain(c, err)
		}
		return sendHTML(c, m)
	}
}

// MapPNGHandler renders the posted points as a PNG snapshot.
func MapPNGHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.PointSequence
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		width := c.QueryInt("width", defaultPNGWidth)
		height := c.QueryInt("height", defaultPNGHeight)
		if width <= 0 || height <= 0 || width > maxPNGSide || height > maxPNGSide {
			return errBadRequest(c, "width and height must be between 1 and 2048")
		}
		m, err := deps.Geo.Map(req, c.QueryInt("zoom", 0))
		if err != nil {
			return errFromDomain(c, err)
		}

		var buf bytes.Buffer
		if err := m.RenderPNG(&buf, width, height); err != nil {
			return errFromDomain(c, err)
		}
		metrics.MapsRendered.WithLabelValues("png").Inc()
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(buf.Bytes())
	}
}

// CreateTrajectoryHandler stores a trajectory and computes its speed profile.
// Trajectories are keyed by user and name, so posting the same body again
// returns the stored trajectory.
func CreateTrajectoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createTrajectoryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		batch := &domain.SampleBatch{
			UserID:  req.UserID,
			Name:    req.Name,
			Samples: make([]domain.PointSample, len(req.Samples)),
		}
		for i, s := range req.Samples {
			batch.Samples[i] = s.sample()
		}

		traj, _, err := deps.Trajectories.Ingest(c.UserContext(), batch)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/trajectories/" + traj.ID)
		return c.Status(fiber.StatusCreated).JSON(traj)
	}
}

// ListTrajectoriesHandler lists trajectory summaries, optionally filtered by user.
func ListTrajectoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c)

		items, total, err := deps.Trajectories.List(c.UserContext(), c.Query("user_id"), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newPage(c, items, Pagination{Offset: offset, Limit: limit, Total: total}))
	}
}

// GetTrajectoryHandler returns a trajectory with its samples.
func GetTrajectoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		traj, err := deps.Trajectories.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(traj)
	}
}

// TrajectorySpeedsHandler returns the speed profile of a trajectory.
func TrajectorySpeedsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := deps.Trajectories.SpeedProfile(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(profile)
	}
}

// TrajectoryCentroidHandler returns the spherical centroid of a trajectory.
func TrajectoryCentroidHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		centroid, err := deps.Trajectories.Centroid(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(centroid)
	}
}

// TrajectoryMapHandler renders a stored trajectory as an HTML map.
func TrajectoryMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Trajectories.Map(c.UserContext(), c.Params("id"), c.QueryInt("zoom", 0))
		if err != nil {
			return errFromDomain(c, err)
		}
		return sendHTML(c, m)
	}
}

func sendHTML(c *fiber.Ctx, m *mapview.Map) error {
	var buf bytes.Buffer
	if err := m.RenderHTML(&buf); err != nil {
		return errFromDomain(c, err)
	}
	metrics.MapsRendered.WithLabelValues("html").Inc()
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
