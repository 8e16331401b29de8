// Package scrubber reclaims disk space the durability model in spec §4.3
// explicitly tolerates leaking: a blob written but never referenced by any
// metadata record (crash between rename and refcount-file creation) and a
// ".tmp.*" spill file left behind by a write that never completed its
// rename. Neither condition corrupts the store — BlobStore's invariants
// hold regardless — but left unscrubbed they accumulate forever on a
// long-running process.
package scrubber

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// tmpSuffix matches the uuid-suffixed spill names blobstore.Write creates
// ("<blob>.tmp.<uuid>") before it renames them into place.
const tmpSuffix = ".tmp."

// countSuffix marks a blob's refcount sidecar; a blob file with no sidecar
// of this name next to it was never referenced to completion.
const countSuffix = ".count"

// Sweep walks blobsRoot's two-level hex fan-out and removes:
//   - any "*.tmp.*" file older than grace (an interrupted write)
//   - any blob file with no ".count" sidecar, also older than grace (a
//     blob whose refcount file was never written before a crash)
//
// The age gate exists so Sweep never races a write currently in flight:
// a spill file or a freshly-renamed blob younger than grace is left alone
// even if it looks orphaned at this instant.
func Sweep(ctx context.Context, blobsRoot string, grace time.Duration, logger *zap.Logger) error {
	prefixDirs, err := os.ReadDir(blobsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-grace)
	g, ctx := errgroup.WithContext(ctx)

	for _, pd := range prefixDirs {
		if !pd.IsDir() {
			continue
		}
		dir := filepath.Join(blobsRoot, pd.Name())
		g.Go(func() error {
			return sweepPrefixDir(ctx, dir, cutoff, logger)
		})
	}
	return g.Wait()
}

func sweepPrefixDir(ctx context.Context, dir string, cutoff time.Time, logger *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	counted := make(map[string]bool, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), countSuffix) {
			counted[strings.TrimSuffix(e.Name(), countSuffix)] = true
		}
	}

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name := e.Name()
		full := filepath.Join(dir, name)

		switch {
		case strings.Contains(name, tmpSuffix):
			removeIfStale(full, cutoff, "stale spill file", logger)

		case !strings.HasSuffix(name, countSuffix) && !counted[name]:
			removeIfStale(full, cutoff, "blob with no refcount sidecar", logger)
		}
	}
	return nil
}

func removeIfStale(path string, cutoff time.Time, reason string, logger *zap.Logger) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.ModTime().After(cutoff) {
		return
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("scrubber: remove failed", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("scrubber: reclaimed orphaned file", zap.String("path", path), zap.String("reason", reason))
}

// RunPeriodic starts Sweep on every interval until ctx is cancelled, with an
// immediate first pass so orphans from a prior crash are cleared at
// startup. The returned channel is closed once the background goroutine
// has exited, so callers can wait for the final in-flight pass on shutdown.
func RunPeriodic(ctx context.Context, blobsRoot string, grace, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		if err := Sweep(ctx, blobsRoot, grace, logger); err != nil {
			logger.Warn("scrubber: sweep failed", zap.Error(err))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := Sweep(ctx, blobsRoot, grace, logger); err != nil {
					logger.Warn("scrubber: sweep failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
