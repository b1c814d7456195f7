// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"plantstock/internal/domain/counts"
	"plantstock/internal/domain/history"
	"plantstock/internal/domain/materials"
	"plantstock/internal/infrastructure/http/v1/handlers"
	"plantstock/internal/infrastructure/http/v1/middleware"
	"plantstock/internal/infrastructure/storage/postgres"
	"plantstock/internal/infrastructure/storage/postgres/count_repo"
	"plantstock/internal/infrastructure/storage/postgres/history_repo"
	"plantstock/internal/infrastructure/storage/postgres/material_repo"
	"plantstock/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (used for health checks).
	Pool *postgres.Pool

	// TxManager coordinates transactions across repositories.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// JWTSecret verifies bearer tokens. Empty disables token parsing and
	// identity comes from plain headers.
	JWTSecret string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no identity required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Wire repositories and services
	materialRepo := material_repo.New(cfg.TxManager)
	historyRepo, err := history_repo.New(cfg.TxManager)
	if err != nil {
		return nil, err
	}
	countRepo := count_repo.New(cfg.TxManager)

	historyService := history.NewService(historyRepo)
	materialService := materials.NewService(materialRepo, historyService, cfg.TxManager)
	countService := counts.NewService(countRepo, materialService, cfg.TxManager)

	baseHandler := handlers.NewBaseHandler()
	materialHandler := handlers.NewMaterialHandler(baseHandler, materialService)
	historyHandler := handlers.NewHistoryHandler(baseHandler, historyService)
	countHandler := handlers.NewCountSessionHandler(baseHandler, countService)

	// API v1, everything org-scoped
	api := router.Group("/api/v1")
	api.Use(middleware.Identity(middleware.IdentityConfig{JWTSecret: cfg.JWTSecret}))
	{
		mats := api.Group("/materials")
		{
			mats.GET("", materialHandler.List)
			mats.POST("", materialHandler.Create)
			mats.GET("/low-stock", materialHandler.ListLowStock)
			mats.GET("/sku/:sku", materialHandler.GetBySKU)
			mats.GET("/:id", materialHandler.Get)
			mats.PUT("/:id", materialHandler.Update)
			mats.DELETE("/:id", materialHandler.Delete)
			mats.POST("/:id/adjust", materialHandler.Adjust)
			mats.POST("/:id/receive", materialHandler.Receive)
			mats.POST("/:id/issue", materialHandler.Issue)
			mats.GET("/:id/consistency", materialHandler.CheckConsistency)
			mats.GET("/:id/history", historyHandler.ListForMaterial)
		}

		hist := api.Group("/history")
		{
			hist.GET("", historyHandler.List)
			hist.GET("/:id", historyHandler.Get)
		}

		sessions := api.Group("/count-sessions")
		{
			sessions.GET("", countHandler.List)
			sessions.POST("", countHandler.Create)
			sessions.GET("/:id", countHandler.Get)
			sessions.POST("/:id/start", countHandler.Start)
			sessions.POST("/:id/counts", countHandler.RecordCount)
			sessions.POST("/:id/apply", countHandler.Apply)
			sessions.POST("/:id/cancel", countHandler.Cancel)
			sessions.GET("/:id/variance-report", countHandler.VarianceReport)
		}
	}

	return router, nil
}
