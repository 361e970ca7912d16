package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/relocato/mailbridge/api/handlers"
	"github.com/relocato/mailbridge/api/middleware"
	"github.com/relocato/mailbridge/config"
	"github.com/relocato/mailbridge/internal/repository"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, cfg *config.Config, s *services.Services, repos *repository.Repositories) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(s, repos)

	// Liveness and probed status need no key; the probe result is data
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s.HealthService))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILBRIDGE-API-KEY",
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.CustomContextMiddleware(cfg.AppConfig.AppSource))
	{
		api.GET("/folders", apiHandlers.Folders.List())

		emails := api.Group("/emails")
		{
			emails.GET("", apiHandlers.Emails.List())
			emails.GET("/:folder/:uid", apiHandlers.Emails.Read())
			emails.POST("", apiHandlers.Emails.Send())
		}

		// sync writes owner-scoped records, so it additionally needs the
		// caller's verified identity
		sync := api.Group("/sync")
		sync.Use(middleware.OwnerAuthMiddleware(cfg.AppConfig.JWTSecret))
		sync.Use(middleware.CustomContextMiddleware(cfg.AppConfig.AppSource))
		{
			sync.POST("", apiHandlers.Sync.Run())
		}
	}
}
