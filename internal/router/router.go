package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/api"
	"github.com/foodgram/foodgram/backend/internal/metrics"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/storage"
)

// Deps is everything the router needs to build the application
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Media    storage.Storage
	Services api.Services
	// RecipeLimiter is nil when redis is not configured
	RecipeLimiter *middleware.RateLimiter
}

// SetupRouter configures the middleware chain and the application routes
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.ErrorHandler(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(deps.Config.Server.CORSOrigins),
		middleware.ResolveCaller(deps.Services.Auth),
	)

	router.GET("/health", api.HealthCheck(deps.DB))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// uploaded images are only served by the process for the local backend
	if local, ok := deps.Media.(*storage.LocalStorage); ok {
		router.Static(deps.Config.Media.BaseURL, local.Root())
	}

	api.RegisterRoutes(router, deps.Services, deps.Media, deps.Config.Pagination, deps.RecipeLimiter)
	return router
}
