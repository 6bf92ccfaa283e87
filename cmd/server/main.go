package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/api"
	"github.com/andresuchdata/distroflow/internal/cache"
	"github.com/andresuchdata/distroflow/internal/config"
	"github.com/andresuchdata/distroflow/internal/metrics"
	"github.com/andresuchdata/distroflow/internal/pipeline"
	"github.com/andresuchdata/distroflow/internal/repository"
	"github.com/andresuchdata/distroflow/internal/repository/postgres"
	"github.com/andresuchdata/distroflow/internal/service"
	"github.com/andresuchdata/distroflow/internal/storage"
	"github.com/andresuchdata/distroflow/pkg/logger"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Engine.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid engine configuration")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	inventoryRepo := repository.NewInventoryRepository(db.DB)
	inventoryService := service.NewInventoryService(inventoryRepo, reportCache, cfg.Engine, cfg.App.Workers, collector).
		WithWindow(cfg.App.DefaultLookbackDays, cfg.App.DefaultHistoryWeeks)

	services := &api.Services{
		Params:    cfg.Engine,
		Inventory: inventoryService,
		Forecast:  service.NewForecastService(inventoryRepo, reportCache, collector),
		Visits:    service.NewVisitService(repository.NewVisitRepository(db.DB), collector),
		Metrics:   collector,
	}

	store, err := storage.New(context.Background(), cfg.Storage, cfg.App.DataDir)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Object storage unavailable, snapshot endpoints disabled")
	} else {
		runs := pipeline.NewRepository(db.DB.DB)
		jobConfig := pipeline.DefaultPipelineConfig("inventory")
		jobConfig.WorkerCount = cfg.App.Workers
		jobConfig.Prefix = path.Join(cfg.Storage.Prefix, "inventory")
		services.Snapshots = pipeline.NewSnapshotJob(jobConfig, inventoryService, store, runs)
		services.Runs = runs
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
