package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/trajprep/internal/adapters/nats"
	"github.com/samirrijal/trajprep/internal/adapters/postgres"
	"github.com/samirrijal/trajprep/internal/adapters/valkey"
	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/core/ports"
	"github.com/samirrijal/trajprep/internal/core/usecases"
	"github.com/samirrijal/trajprep/internal/pkg/config"
	"github.com/samirrijal/trajprep/internal/pkg/logging"
	"github.com/samirrijal/trajprep/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("trajprep-processor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	geoSvc := usecases.NewGeoService(usecases.MapDefaults{
		TileURL:     cfg.MapView.TileURL,
		Attribution: cfg.MapView.Attribution,
		Zoom:        cfg.MapView.Zoom,
	})
	svc := usecases.NewTrajectoryService(postgres.NewTrajectoryRepo(db), cacheSvc, pub, geoSvc)

	err = sub.SubscribeSampleBatches(ctx, func(ctx context.Context, batch *domain.SampleBatch) error {
		traj, profile, err := svc.Ingest(ctx, batch)
		if err != nil {
			slog.ErrorContext(ctx, "ingest batch failed",
				"user_id", batch.UserID, "name", batch.Name, "samples", len(batch.Samples), "error", err)
			return err
		}
		if profile == nil {
			slog.DebugContext(ctx, "batch stored",
				"trajectory_id", traj.ID, "offset", batch.Offset, "points", traj.NumPoints, "total", batch.Total)
			return nil
		}
		slog.InfoContext(ctx, "trajectory stored",
			"trajectory_id", traj.ID, "user_id", traj.UserID, "points", traj.NumPoints,
			"max_speed_mps", profile.MaxSpeed, "distance_m", profile.TotalDistance)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("processor started", "stream", natsadapter.SamplesStream)
	<-ctx.Done()
	slog.Info("processor shutting down")
}
