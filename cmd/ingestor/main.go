package main

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	natsadapter "github.com/samirrijal/trajprep/internal/adapters/nats"
	"github.com/samirrijal/trajprep/internal/core/domain"
	"github.com/samirrijal/trajprep/internal/geolife"
	"github.com/samirrijal/trajprep/internal/pkg/config"
	"github.com/samirrijal/trajprep/internal/pkg/logging"
)

const maxConcurrentFiles = 4

// source opens one .plt file, either on disk or inside a zip archive.
type source struct {
	path string
	open func() (io.ReadCloser, error)
}

func main() {
	cfg, err := config.Load("trajprep-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	roots := os.Args[1:]
	if len(roots) == 0 {
		roots = []string{"Data"}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	var sources []source
	var archives []*zip.ReadCloser
	defer func() {
		for _, a := range archives {
			a.Close()
		}
	}()
	for _, root := range roots {
		found, zr, err := collect(root)
		if err != nil {
			log.Fatalf("scan %s: %v", root, err)
		}
		sources = append(sources, found...)
		archives = append(archives, zr...)
	}
	slog.Info("ingest starting", "files", len(sources), "batch_size", cfg.Ingest.BatchSize)

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, maxConcurrentFiles)
		published atomic.Int64
		failed    atomic.Int64
	)
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(src source) {
			defer wg.Done()
			defer func() { <-sem }()

			n, err := ingestFile(ctx, pub, src, cfg.Ingest.BatchSize)
			if err != nil {
				failed.Add(1)
				slog.Error("ingest file failed", "path", src.path, "error", err)
				return
			}
			published.Add(int64(n))
		}(src)
	}
	wg.Wait()

	slog.Info("ingest finished",
		"files", len(sources), "failed", failed.Load(), "samples", published.Load())
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

// collect finds .plt files under root. Zip archives are opened and their
// .plt entries added; the returned archives must be closed by the caller.
func collect(root string) ([]source, []*zip.ReadCloser, error) {
	var (
		sources  []source
		archives []*zip.ReadCloser
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".plt":
			p := path
			sources = append(sources, source{path: p, open: func() (io.ReadCloser, error) { return os.Open(p) }})
		case ".zip":
			zr, err := zip.OpenReader(path)
			if err != nil {
				return fmt.Errorf("open zip %s: %w", path, err)
			}
			archives = append(archives, zr)
			for _, f := range zr.File {
				if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".plt") {
					continue
				}
				sources = append(sources, source{path: f.Name, open: f.Open})
			}
		}
		return nil
	})
	return sources, archives, err
}

func ingestFile(ctx context.Context, pub *natsadapter.Publisher, src source, batchSize int) (int, error) {
	rc, err := src.open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	samples, err := geolife.ParsePLT(rc)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		slog.Warn("skip empty trajectory", "path", src.path)
		return 0, nil
	}

	userID, name := geolife.TrajectoryRef(src.path)
	batches := geolife.Batches(userID, name, samples, batchSize)
	for i := range batches {
		if err := publishBatch(ctx, pub, &batches[i]); err != nil {
			return 0, err
		}
	}
	slog.Debug("file published", "path", src.path, "user_id", userID, "samples", len(samples), "batches", len(batches))
	return len(samples), nil
}

func publishBatch(ctx context.Context, pub *natsadapter.Publisher, batch *domain.SampleBatch) error {
	if err := pub.PublishSampleBatch(ctx, batch); err != nil {
		return fmt.Errorf("publish %s: %w", batch.Name, err)
	}
	return nil
}
