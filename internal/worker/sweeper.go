package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"banana_clicker/internal/logger"
	"banana_clicker/internal/metrics"
	"banana_clicker/internal/service"

	"golang.org/x/sync/singleflight"
)

// SweepRunner is the part of the progress service the sweeper drives.
type SweepRunner interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

// Sweeper runs the offline accrual sweep on a fixed interval. At most one
// sweep runs at a time: ticks that land while a sweep is in flight are
// skipped, and manual triggers join the running sweep.
type Sweeper struct {
	runner   SweepRunner
	interval time.Duration

	group    singleflight.Group
	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu   sync.RWMutex
	last service.SweepReport
	runs int64

	log *slog.Logger
}

func NewSweeper(runner SweepRunner, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{
		runner:   runner,
		interval: interval,
		log:      logger.With("component", "sweeper"),
	}
}

// Run blocks until ctx is cancelled and any in-flight sweep has returned.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info("sweeper started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Sweeper) tick(ctx context.Context) {
	if w.inFlight.Load() {
		metrics.SweepSkipped.Inc()
		w.log.Debug("previous sweep still running, skipping tick")
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if _, err := w.sweep(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("sweep failed", "error", err)
		}
	}()
}

// SweepNow runs a sweep immediately, or waits for the one already running
// and returns its report.
func (w *Sweeper) SweepNow(ctx context.Context) (service.SweepReport, error) {
	return w.sweep(context.WithoutCancel(ctx))
}

func (w *Sweeper) sweep(ctx context.Context) (service.SweepReport, error) {
	v, err, _ := w.group.Do("sweep", func() (any, error) {
		w.inFlight.Store(true)
		defer w.inFlight.Store(false)

		rep, err := w.runner.Sweep(ctx)
		w.mu.Lock()
		w.last = rep
		w.runs++
		w.mu.Unlock()
		return rep, err
	})
	rep, _ := v.(service.SweepReport)
	return rep, err
}

// Running reports whether a sweep is in flight.
func (w *Sweeper) Running() bool {
	return w.inFlight.Load()
}

// LastReport returns the most recent sweep report and the number of sweeps
// completed so far.
func (w *Sweeper) LastReport() (service.SweepReport, int64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.runs
}
