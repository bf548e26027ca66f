package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/irraudit/bgpcrunch/internal/config"
	"github.com/irraudit/bgpcrunch/internal/metrics"
	"github.com/irraudit/bgpcrunch/internal/plot"
	"github.com/irraudit/bgpcrunch/internal/store"
)

// ErrNoDaySucceeded is returned by a phase when every day in the
// workpackage failed; a partially-failed run logs the failed days and
// returns nil so the remaining days' outputs stand.
var ErrNoDaySucceeded = errors.New("pipeline: no day succeeded")

// Runner drives the three phases over a workpackage of days. The sink
// is optional; when nil the run is flat-file-only.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	plotter plot.Plotter
	sink    *store.Writer
}

func New(cfg *config.Config, logger *zap.Logger, plotter plot.Plotter, sink *store.Writer) *Runner {
	return &Runner{cfg: cfg, logger: logger, plotter: plotter, sink: sink}
}

// ResultRootWritable probes the result root for writability; the HTTP
// readiness check calls this.
func (r *Runner) ResultRootWritable() bool {
	f, err := os.CreateTemp(r.cfg.Data.ResultRoot, ".probe*")
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}

// runWorkers fans days out over the worker pool and joins. Workers
// check for cancellation only between days; a started day always runs
// to completion. A failed day is logged and recorded, and the
// remaining days proceed.
func (r *Runner) runWorkers(ctx context.Context, phase string, days []Day, fn func(Day) error) error {
	if len(days) == 0 {
		return nil
	}
	n := r.cfg.Service.Workers
	if n > len(days) {
		n = len(days)
	}

	queue := make(chan Day, len(days))
	for _, d := range days {
		queue <- d
	}
	close(queue)
	depth := metrics.WorkerQueueDepth.WithLabelValues(phase)
	depth.Set(float64(len(days)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []Day

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for day := range queue {
				depth.Dec()
				if ctx.Err() != nil {
					return
				}
				start := time.Now()
				if err := fn(day); err != nil {
					r.logger.Error("day failed",
						zap.String("phase", phase),
						zap.Stringer("day", day),
						zap.Error(err))
					mu.Lock()
					failed = append(failed, day)
					mu.Unlock()
				}
				metrics.DayProcessingDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
			}
		}()
	}
	wg.Wait()

	if len(failed) == len(days) {
		return fmt.Errorf("%w: phase %s, %d days", ErrNoDaySucceeded, phase, len(days))
	}
	if len(failed) > 0 {
		r.logger.Warn("run finished with incomplete days",
			zap.String("phase", phase),
			zap.Int("failed", len(failed)),
			zap.Int("total", len(days)))
	}
	return ctx.Err()
}

// Serve runs all three phases over every available day, then keeps
// polling the snapshot directories and re-running as new days land.
// Preprocess and process skip days whose artifacts already exist, so a
// pass over an unchanged data root is cheap.
func (r *Runner) Serve(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.runAllPhases(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("pipeline pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) runAllPhases(ctx context.Context) error {
	days, err := r.ListDays()
	if err != nil {
		return err
	}
	if len(days) == 0 {
		r.logger.Info("no complete snapshot days found",
			zap.String("data_root", r.cfg.Data.DataRoot))
		return nil
	}
	if err := r.Preprocess(ctx, days); err != nil {
		return err
	}
	if err := r.Process(ctx, days); err != nil {
		return err
	}
	return r.Postprocess(ctx, days)
}

// RunAll executes preprocess, process and postprocess over days — the
// default subcommand-less invocation.
func (r *Runner) RunAll(ctx context.Context, days []Day) error {
	if err := r.Preprocess(ctx, days); err != nil {
		return err
	}
	if err := r.Process(ctx, days); err != nil {
		return err
	}
	return r.Postprocess(ctx, days)
}

// writeFileAtomic writes one output file via a temp file and rename,
// so a crashed worker never leaves a half-written report behind.
func writeFileAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("pipeline: creating temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("pipeline: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("pipeline: closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("pipeline: renaming %s: %w", path, err)
	}
	return nil
}
