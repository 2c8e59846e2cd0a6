package workers

import (
	"context"
	"sync"
	"time"

	"github.com/snap-point/activity-engine/logger"
)

type HotnessConfig struct {
	Enabled    bool          `env:"HOTNESS_SWEEP_ENABLED,default=true"`
	Interval   time.Duration `env:"HOTNESS_SWEEP_INTERVAL,default=5m"`
	Window     time.Duration `env:"HOTNESS_SWEEP_WINDOW,default=72h"`
	StaleAfter time.Duration `env:"HOTNESS_SWEEP_STALE_AFTER,default=15m"`
	Batch      int           `env:"HOTNESS_SWEEP_BATCH,default=200"`
	Timeout    time.Duration `env:"HOTNESS_SWEEP_TIMEOUT,default=1m"`
}

func DefaultHotnessConfig() HotnessConfig {
	return HotnessConfig{
		Enabled:    true,
		Interval:   5 * time.Minute,
		Window:     72 * time.Hour,
		StaleAfter: 15 * time.Minute,
		Batch:      200,
		Timeout:    time.Minute,
	}
}

func (c HotnessConfig) withDefaults() HotnessConfig {
	defaults := DefaultHotnessConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.Window <= 0 {
		c.Window = defaults.Window
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaults.StaleAfter
	}
	if c.Batch <= 0 {
		c.Batch = defaults.Batch
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}

// StaleRecomputer recomputes scores of recent activities whose score is older than staleAfter.
type StaleRecomputer interface {
	RecomputeStale(ctx context.Context, window, staleAfter time.Duration, batch int) (int, error)
}

// HotnessWorker periodically sweeps recent activities so ranking decays even when nobody
// engages with them.
type HotnessWorker struct {
	scorer StaleRecomputer
	cfg    HotnessConfig
	log    *logger.Logger
	wg     sync.WaitGroup
}

func NewHotnessWorker(scorer StaleRecomputer, cfg HotnessConfig, baseLog *logger.Logger) *HotnessWorker {
	return &HotnessWorker{
		scorer: scorer,
		cfg:    cfg.withDefaults(),
		log:    baseLog.With("worker", "HotnessSweep"),
	}
}

// Start runs the sweep loop in the background until ctx is cancelled.
func (w *HotnessWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.RunForever(ctx)
	}()
}

// Wait blocks until a started loop has returned, including any sweep that was in flight
// when ctx was cancelled. Callers close the database only after Wait.
func (w *HotnessWorker) Wait() {
	w.wg.Wait()
}

func (w *HotnessWorker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if n, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("hotness sweep failed", "error", err)
		} else if n > 0 {
			w.log.Debug("hotness sweep done", "recomputed", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *HotnessWorker) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()
	return w.scorer.RecomputeStale(ctx, w.cfg.Window, w.cfg.StaleAfter, w.cfg.Batch)
}
