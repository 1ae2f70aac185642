package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/api"
	"github.com/foodgram/foodgram/backend/internal/database"
	"github.com/foodgram/foodgram/backend/internal/logging"
	"github.com/foodgram/foodgram/backend/internal/metrics"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/router"
	"github.com/foodgram/foodgram/backend/internal/server"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	metrics.Init()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx := context.Background()
	media, err := storage.New(ctx, cfg.Media)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialise media storage")
	}

	var (
		revocations service.RevocationStore
		limiter     *middleware.RateLimiter
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewRedisClient(cfg.Redis)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		revocations = service.NewRedisRevocationStore(redisClient)
		limiter = middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RateLimit.RecipeCreatePerHour)
	} else {
		logging.Warn().Msg("Redis not configured, revoking tokens in the database and skipping rate limits")
		store := service.NewDBRevocationStore(db)
		purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if purged, err := store.PurgeExpired(purgeCtx); err != nil {
			logging.Warn().Err(err).Msg("Failed to purge expired token revocations")
		} else if purged > 0 {
			logging.Info().Int64("purged", purged).Msg("Purged expired token revocations")
		}
		cancel()
		revocations = store
	}

	handler := router.SetupRouter(router.Deps{
		Config:        cfg,
		DB:            db,
		Media:         media,
		Services:      api.NewServices(db, media, cfg, revocations),
		RecipeLimiter: limiter,
	})

	srv := server.New(cfg.Server, handler)
	if err := srv.Run(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Server error")
	}
}
