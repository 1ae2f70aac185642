package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/database"
	"github.com/foodgram/foodgram/backend/internal/logging"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/storage"
)

// Services bundles everything the handlers call into
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Subscriptions *service.SubscriptionService
	Tags          *service.TagService
	Ingredients   *service.IngredientService
	Recipes       *service.RecipeService
	Relations     *service.RelationService
	Shopping      *service.ShoppingService
}

// NewServices builds the service layer on top of one database and media backend
func NewServices(db *gorm.DB, media storage.Storage, cfg *config.Config, revocations service.RevocationStore) Services {
	return Services{
		Auth:          service.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, revocations),
		Users:         service.NewUserService(db, media),
		Subscriptions: service.NewSubscriptionService(db),
		Tags:          service.NewTagService(db),
		Ingredients:   service.NewIngredientService(db),
		Recipes:       service.NewRecipeService(db, media),
		Relations:     service.NewRelationService(db),
		Shopping:      service.NewShoppingService(db),
	}
}

// HealthCheck returns the health status of the API
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.HealthCheck(db); err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("database health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "ok"})
	}
}

// RegisterRoutes mounts every API endpoint under /api. limiter may be nil.
func RegisterRoutes(router *gin.Engine, svc Services, media storage.Storage, pagination config.PaginationConfig, limiter *middleware.RateLimiter) {
	registerValidators()

	render := NewRenderer(media)
	paginator := NewPaginator(pagination)

	api := router.Group("/api")
	NewAuthHandler(svc.Auth).RegisterRoutes(api)
	NewUserHandler(svc.Users, svc.Subscriptions, paginator, render).RegisterRoutes(api)
	NewTagHandler(svc.Tags, render).RegisterRoutes(api)
	NewIngredientHandler(svc.Ingredients, render).RegisterRoutes(api)
	NewRecipeHandler(svc.Recipes, svc.Relations, svc.Shopping, limiter, paginator, render).RegisterRoutes(api)
}
