package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/snap-point/activity-engine/actions"
	"github.com/snap-point/activity-engine/config"
	"github.com/snap-point/activity-engine/controllers"
	"github.com/snap-point/activity-engine/engagement"
	"github.com/snap-point/activity-engine/feed"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/media"
	"github.com/snap-point/activity-engine/middleware"
	"github.com/snap-point/activity-engine/notify"
	"github.com/snap-point/activity-engine/observability"
	"github.com/snap-point/activity-engine/progression"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/rewards"
	"github.com/snap-point/activity-engine/routes"
	"github.com/snap-point/activity-engine/scoring"
	"github.com/snap-point/activity-engine/workers"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Server.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, log, cfg.Tracing)

	db, err := config.InitDB(cfg.Database, log)
	if err != nil {
		log.Fatal("database init failed", "error", err)
	}

	// Repositories
	activityRepo := repositories.NewActivityRepo(db, log)
	engagementRepo := repositories.NewEngagementRepo(db, log)
	resourceRepo := repositories.NewResourceRepo(db, log)
	relationshipRepo := repositories.NewRelationshipRepo(db, log)
	ledgerRepo := repositories.NewLedgerRepo(db, log)
	progressionRepo := repositories.NewProgressionRepo(db, log)
	achievementRepo := repositories.NewAchievementRepo(db, log)
	calibrationRepo := repositories.NewCalibrationRepo(db, log)

	// Collaborators
	notifier, closeNotifier := notify.NewNotifier(ctx, cfg.Redis, log)
	dispatcher := notify.NewDispatcher(notifier, cfg.Redis, log)
	resolver, err := media.NewResolver(cfg.Media)
	if err != nil {
		log.Fatal("media resolver init failed", "error", err)
	}

	// Services
	refresher := scoring.NewRefresher(activityRepo, calibrationRepo, cfg.Scoring, log)
	aggregator := engagement.NewAggregator(db, activityRepo, engagementRepo, refresher, dispatcher, log)
	validator := rewards.NewValidator(ledgerRepo, cfg.Rewards, log)
	ledger := progression.NewLedger(progression.Deps{
		DB:           db,
		Entries:      ledgerRepo,
		Progressions: progressionRepo,
		Activities:   activityRepo,
		Achievements: achievementRepo,
		Users:        resourceRepo,
		Validator:    validator,
		Scores:       refresher,
		Notifier:     dispatcher,
	}, cfg.Progression, log)
	actionService := actions.NewService(actions.Deps{
		DB:            db,
		Resources:     resourceRepo,
		Activities:    activityRepo,
		Engagements:   engagementRepo,
		Relationships: relationshipRepo,
		Entries:       ledgerRepo,
		Aggregator:    aggregator,
		Ledger:        ledger,
		Scores:        refresher,
	}, log)
	composer := feed.NewComposer(feed.Deps{
		Activities:    activityRepo,
		Relationships: relationshipRepo,
		Engagements:   engagementRepo,
		Resources:     resourceRepo,
		Progressions:  progressionRepo,
		Media:         resolver,
		Scores:        refresher,
	}, cfg.Feed, log)

	sweeper := workers.NewHotnessWorker(refresher, cfg.Hotness, log)
	if cfg.Hotness.Enabled {
		sweeper.Start(ctx)
	}

	// HTTP
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(middleware.RequestLogger(log))

	routes.SetupRoutes(r, routes.Controllers{
		Feed:        controllers.NewFeedController(composer, log),
		Action:      controllers.NewActionController(actionService, log),
		Interaction: controllers.NewInteractionController(actionService, aggregator, log),
		User:        controllers.NewUserController(ledger, resourceRepo, relationshipRepo, log),
		Leaderboard: controllers.NewLeaderboardController(ledger, log),
	}, cfg.Server.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", "error", err)
	}
	sweeper.Wait()
	refresher.Close()
	dispatcher.Close()
	if err := closeNotifier(); err != nil {
		log.Warn("notifier close failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
