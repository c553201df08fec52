package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/trajprep/internal/adapters/postgres"
	"github.com/samirrijal/trajprep/internal/adapters/valkey"
	"github.com/samirrijal/trajprep/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Geo          *usecases.GeoService
	Trajectories *usecases.TrajectoryService
	NATS         *nats.Conn
	DB           *postgres.DB
	Cache        *valkey.Cache
}
