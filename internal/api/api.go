package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/api/handlers"
	"github.com/andresuchdata/distroflow/internal/api/middleware"
	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/metrics"
)

type Services struct {
	Params    engine.Params
	Inventory handlers.InventoryService
	Forecast  handlers.ForecastService
	Visits    handlers.VisitService
	Snapshots handlers.SnapshotRunner
	Runs      handlers.SnapshotLister
	Metrics   *metrics.Collector
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if services != nil && services.Metrics != nil {
		router.Use(services.Metrics.Middleware())
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	if services.Metrics != nil {
		router.GET("/metrics", gin.WrapH(services.Metrics.Handler()))
	}

	apiGroup := router.Group("/api/v1")

	if services.Inventory != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.Inventory, services.Params)
		inventoryGroup := apiGroup.Group("/inventory")
		{
			inventoryGroup.GET("/report", inventoryHandler.GetReport)
			inventoryGroup.GET("/options", inventoryHandler.GetOptions)
			inventoryGroup.GET("/:distributor/stockout", inventoryHandler.GetStockout)
			inventoryGroup.GET("/:distributor/products", inventoryHandler.GetProducts)
		}
	}

	if services.Forecast != nil {
		forecastHandler := handlers.NewForecastHandler(services.Forecast, services.Params)
		apiGroup.GET("/forecast", forecastHandler.GetForecast)
	}

	if services.Visits != nil {
		visitHandler := handlers.NewVisitHandler(services.Visits, services.Params)
		apiGroup.GET("/visits/attribution", visitHandler.GetAttribution)
	}

	if services.Snapshots != nil && services.Runs != nil {
		snapshotHandler := handlers.NewSnapshotHandler(services.Snapshots, services.Runs, services.Params)
		snapshotGroup := apiGroup.Group("/snapshots")
		{
			snapshotGroup.GET("", snapshotHandler.List)
			snapshotGroup.POST("", snapshotHandler.Create)
		}
	}

	var recorder handlers.Recorder
	if services.Metrics != nil {
		recorder = services.Metrics
	}
	engineHandler := handlers.NewEngineHandler(services.Params, recorder)
	engineGroup := apiGroup.Group("/engine")
	{
		engineGroup.POST("/forecast", engineHandler.Forecast)
		engineGroup.POST("/classify", engineHandler.Classify)
		engineGroup.POST("/assess", engineHandler.Assess)
		engineGroup.POST("/attribute", engineHandler.Attribute)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
