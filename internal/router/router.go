package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/handler"
	"github.com/stemsi/formbank-backend/internal/middleware"
	"github.com/stemsi/formbank-backend/internal/response"
	"github.com/stemsi/formbank-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Form   *handler.FormHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authService is nil when bearer-token auth is disabled.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 1. Read Group (Public) ────────────────────────────────────────
	api := router.Group("/api")
	api.GET("/system/metrics", handlers.System.Metrics)

	forms := api.Group("/forms")
	{
		forms.GET("", middleware.CacheControl(middleware.CacheRevalidate), handlers.Form.ListForms)
		forms.GET("/:id", middleware.CacheControl(middleware.CacheRevalidate), handlers.Form.GetForm)
		forms.GET("/:id/download", middleware.CacheControl(middleware.CacheNoStore), handlers.Form.DownloadForm)
		forms.GET("/:id/export.xlsx", middleware.CacheControl(middleware.CacheNoStore), handlers.Form.ExportSpreadsheet)
	}

	// ─── 2. Write Group (Body Limit + Rate Limit + optional JWT) ───────
	writes := api.Group("/forms")
	writes.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.RateLimitPerMinute > 0 {
		limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)
		writes.Use(limiter.Middleware())
	}
	if authService != nil {
		writes.Use(middleware.RequireEditorJWT(authService))
	}
	{
		writes.POST("", handlers.Form.ExportForm)
		writes.PUT("/:id", handlers.Form.ReplaceForm)
		writes.DELETE("/:id", handlers.Form.DeleteForm)
	}

	return router
}
