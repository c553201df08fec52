package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/trajprep/internal/adapters/nats"
	"github.com/samirrijal/trajprep/internal/adapters/postgres"
	"github.com/samirrijal/trajprep/internal/adapters/valkey"
	"github.com/samirrijal/trajprep/internal/core/ports"
	"github.com/samirrijal/trajprep/internal/pkg/config"
	"github.com/samirrijal/trajprep/internal/pkg/logging"
	"github.com/samirrijal/trajprep/internal/workflows"
)

func main() {
	trajectoryID := flag.String("trajectory", "", "start a preprocessing run for this trajectory and wait for it")
	flag.Parse()

	cfg, err := config.Load("trajprep-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if *trajectoryID != "" {
		startRun(c, cfg.Temporal.TaskQueue, *trajectoryID)
		return
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, profiles will not be published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	var cacheSvc ports.CacheService
	if cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable, cached profiles will expire on their own", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PreprocessTrajectoryWorkflow)
	w.RegisterActivity(&workflows.PreprocessActivities{
		Trajectories: postgres.NewTrajectoryRepo(db),
		Publisher:    publisher,
		Cache:        cacheSvc,
		Now:          time.Now,
	})

	slog.Info("worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func startRun(c client.Client, taskQueue, trajectoryID string) {
	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "preprocess-" + trajectoryID,
		TaskQueue: taskQueue,
	}, workflows.PreprocessTrajectoryWorkflow, workflows.PreprocessInput{TrajectoryID: trajectoryID})
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}

	var result workflows.PreprocessResult
	if err := run.Get(ctx, &result); err != nil {
		log.Fatalf("workflow %s: %v", run.GetID(), err)
	}
	slog.Info("preprocessing complete",
		"trajectory_id", result.TrajectoryID,
		"points", result.Points,
		"max_speed_mps", result.MaxSpeed,
		"distance_m", result.TotalDistance,
		"published", result.Published)
}
