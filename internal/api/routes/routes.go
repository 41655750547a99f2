package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/qwami-service/qwami_service/internal/api/handlers"
	"github.com/qwami-service/qwami_service/internal/api/middleware"
	"github.com/qwami-service/qwami_service/internal/infrastructure/config"
	"github.com/qwami-service/qwami_service/pkg/logger"
	"github.com/qwami-service/qwami_service/pkg/metrics"
)

// Deps carries the wired handlers into route setup.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	Qwami  *handlers.QwamiHandler
	Health *handlers.HealthHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(deps Deps) *gin.Engine {
	if deps.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware - order matters
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.InputValidation())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(deps.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	// Health and observability (no rate-limit exemption needed at this scale)
	router.GET("/health", deps.Health.Health)
	router.GET("/ready", deps.Health.Readiness)
	router.GET("/live", deps.Health.Liveness)
	router.GET("/ping", deps.Health.Ping)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	qwami := v1.Group("/qwami")
	{
		qwami.GET("/balance", deps.Qwami.GetBalance)
		qwami.POST("/balance", deps.Qwami.LookupBalance)
		qwami.POST("/purchase", deps.Qwami.Purchase)
		qwami.GET("/stats", deps.Qwami.Stats)
		qwami.GET("/quote", deps.Qwami.Quote)

		// Operator wallet surface; 503 when no wallet is deployed
		qwami.POST("/burn", deps.Qwami.Burn)
		qwami.GET("/session", deps.Qwami.GetSession)
		qwami.POST("/session", deps.Qwami.Connect)
		qwami.DELETE("/session", deps.Qwami.Disconnect)
	}

	return router
}
