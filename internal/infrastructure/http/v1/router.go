// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"gaushala/internal/domain/auth"
	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/http/v1/handlers"
	"gaushala/internal/infrastructure/http/v1/middleware"
	"gaushala/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	// Probes are checked by /health/ready.
	Probes map[string]handlers.Probe

	// Reads wraps rollup and journal reads in one snapshot.
	Reads handlers.ReadTx

	Inventory rollup.InventoryStore
	Sales     rollup.SalesStore
	Summary   rollup.SummaryStore
	Journal   rollup.Journal

	// Runner serves recompute requests.
	Runner handlers.SiteRunner

	// Tokens validates bearer tokens. Nil disables the API group.
	Tokens middleware.TokenValidator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Probes)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.Tokens == nil {
		cfg.Logger.Warnw("no token validator configured, rollup API disabled")
		return router
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.Tokens))
	{
		registerRollupRoutes(v1, cfg)
		registerRunRoutes(v1, cfg)
	}

	return router
}

// registerRollupRoutes registers per-site rollup endpoints.
func registerRollupRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewRollupHandler(baseHandler, cfg.Reads, cfg.Inventory, cfg.Sales, cfg.Summary, cfg.Runner)

	rollups := rg.Group("/sites/:siteId/rollups")
	rollups.Use(middleware.RequireSiteAccess())
	{
		rollups.GET("/inventory", handler.Inventory)
		rollups.GET("/sales", handler.Sales)
		rollups.GET("/summary", handler.Summary)
		rollups.POST("/recompute", middleware.RequireRole(auth.RoleAdmin), handler.Recompute)
	}
}

// registerRunRoutes registers run journal endpoints.
func registerRunRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewRunsHandler(handlers.NewBaseHandler(), cfg.Reads, cfg.Journal)
	rg.GET("/runs", handler.List)
}
