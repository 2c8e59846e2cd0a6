package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/types"
)

type Config struct {
	PoolSize  int           `env:"SCORING_POOL_SIZE,default=4"`
	QueueSize int           `env:"SCORING_QUEUE_SIZE,default=1024"`
	Timeout   time.Duration `env:"SCORING_TIMEOUT,default=5s"`
}

func DefaultConfig() Config {
	return Config{
		PoolSize:  4,
		QueueSize: 1024,
		Timeout:   5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PoolSize <= 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}

// Refresher writes recomputed hotness scores back to the activity store. Scheduled work runs
// on a bounded pool; when the queue is full the request is dropped and the sweep worker
// picks the activity up later.
type Refresher struct {
	activities   repositories.ActivityRepo
	calibrations repositories.CalibrationRepo
	params       types.HotnessParams
	pool         pond.Pool
	cfg          Config
	log          *logger.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

func NewRefresher(activities repositories.ActivityRepo, calibrations repositories.CalibrationRepo, cfg Config, baseLog *logger.Logger) *Refresher {
	cfg = cfg.withDefaults()
	return &Refresher{
		activities:   activities,
		calibrations: calibrations,
		params:       types.GetHotnessParams(),
		pool:         pond.NewPool(cfg.PoolSize, pond.WithQueueSize(cfg.QueueSize)),
		cfg:          cfg,
		log:          baseLog.With("service", "HotnessRefresher"),
		tracer:       otel.Tracer("activity-engine/scoring"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Recompute loads the activity's counters and its actor's calibration and stores the new score.
func (r *Refresher) Recompute(ctx context.Context, activityID uint) (float64, error) {
	ctx, span := r.tracer.Start(ctx, "scoring.Recompute", trace.WithAttributes(attribute.Int64("activity.id", int64(activityID))))
	defer span.End()

	dbc := dbctx.Of(ctx)
	activity, err := r.activities.GetByID(dbc, activityID)
	if err != nil {
		return 0, fmt.Errorf("load activity %d: %w", activityID, err)
	}
	multiplier, err := r.calibrations.Multiplier(dbc, activity.ActorID)
	if err != nil {
		r.log.Warn("calibration lookup failed, using 1", "activity_id", activityID, "error", err)
		multiplier = 1
	}
	now := r.now()
	ageHours := now.Sub(activity.CreatedAt).Hours()
	score := Score(activity.Engagement(), ageHours, r.params, multiplier)
	if err := r.activities.UpdateScore(dbc, activityID, score, now); err != nil {
		return 0, fmt.Errorf("store score %d: %w", activityID, err)
	}
	span.SetAttributes(attribute.Float64("hotness.score", score))
	return score, nil
}

// Schedule recomputes the score asynchronously. It never blocks the caller.
func (r *Refresher) Schedule(activityID uint) {
	_, ok := r.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		defer cancel()
		if _, err := r.Recompute(ctx, activityID); err != nil {
			r.log.Warn("hotness recompute failed", "activity_id", activityID, "error", err)
		}
	})
	if !ok {
		r.log.Debug("hotness queue full, deferring to sweep", "activity_id", activityID)
	}
}

// RecomputeStale rescores up to batch activities created within window whose score is older
// than staleAfter. It returns how many were rescored.
func (r *Refresher) RecomputeStale(ctx context.Context, window, staleAfter time.Duration, batch int) (int, error) {
	now := r.now()
	ids, err := r.activities.ListStaleIDs(dbctx.Of(ctx), now.Add(-window), now.Add(-staleAfter), batch)
	if err != nil {
		return 0, fmt.Errorf("list stale activities: %w", err)
	}
	done := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := r.Recompute(ctx, id); err != nil {
			r.log.Warn("stale recompute failed", "activity_id", id, "error", err)
			continue
		}
		done++
	}
	return done, nil
}

// Close waits for scheduled work to finish.
func (r *Refresher) Close() {
	r.pool.StopAndWait()
}
