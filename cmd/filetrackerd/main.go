package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/duskstore/filetracker/internal/config"
	"github.com/duskstore/filetracker/internal/engine"
	"github.com/duskstore/filetracker/internal/httpapi"
	"github.com/duskstore/filetracker/internal/scrubber"
)

func main() {
	root := &cobra.Command{
		Use:   "filetrackerd",
		Short: "content-addressed, versioned file-tracking storage server",
		RunE:  run,
	}
	config.Flags(root)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(*cobra.Command, []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Load()

	eng, err := engine.Open(cfg.StorageRoot)
	if err != nil {
		logger.Error("failed to open storage engine", zap.Error(err))
		return err
	}
	defer eng.Close()

	// Root context — cancelled when a shutdown signal arrives. All
	// long-running background goroutines receive this context so they stop
	// cleanly without needing their own signal wiring.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	blobsRoot := filepath.Join(cfg.StorageRoot, "blobs")
	g.Go(func() error {
		<-scrubber.RunPeriodic(gctx, blobsRoot, cfg.ScrubGrace, cfg.ScrubInterval, logger)
		return nil
	})

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: httpapi.New(eng, logger, cfg.MaxConcurrentOps),
		// ReadHeaderTimeout closes Slowloris: a client that never finishes
		// sending headers holds a goroutine until this fires.
		ReadHeaderTimeout: 10 * time.Second,
		// ReadTimeout and WriteTimeout are intentionally disabled (0 = no
		// limit): a large upload or download at a slow client rate would be
		// silently aborted by any finite value here. A reverse proxy in
		// front of this process is the right layer to bound connection
		// lifetime.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
	}

	g.Go(func() error {
		logger.Info("filetrackerd starting",
			zap.String("listen", cfg.Listen),
			zap.String("storage_root", cfg.StorageRoot),
			zap.Int("max_concurrent_ops", cfg.MaxConcurrentOps),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// shutdownSignals is defined in signals.go (os.Interrupt) and extended by
	// signals_unix.go (+ SIGTERM) via build tags — no OS-specific imports here.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals...)

	select {
	case <-quit:
		logger.Info("shutdown signal received — draining connections")
	case <-gctx.Done():
		logger.Warn("background worker failed — shutting down early")
	}

	// Cancel the root context first so background workers stop accepting
	// new work before the HTTP server drains.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	if err := g.Wait(); err != nil {
		logger.Error("background worker error", zap.Error(err))
		return err
	}

	logger.Info("filetrackerd stopped")
	return nil
}
