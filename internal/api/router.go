package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/app"
	iauth "github.com/anonwork/anonwork/internal/auth"
	"github.com/anonwork/anonwork/internal/cache"
	"github.com/anonwork/anonwork/internal/handlers"
	"github.com/anonwork/anonwork/internal/middleware"
	"github.com/anonwork/anonwork/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// The cache store is optional; when nil, unread counts and rate limits fall
// back to process-local behaviour.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, store cache.Store) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	// Basic rate limiting: 100 requests/minute per IP+path, shared across
	// instances when a cache store is available.
	if shared := middleware.NewSharedRateStore(store); shared != nil {
		r.Use(middleware.RateLimitWithStore(shared, 100, time.Minute))
	} else {
		r.Use(middleware.RateLimit(100, time.Minute))
	}

	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, db)
	registerMonitoringRoutes(r, cfg)

	// One notification service instance backs both the HTTP surface and the
	// engagement derivations triggered by votes, comments and posts.
	notifier, err := services.NewNotificationService(db, services.NotificationOptions{
		Milestones:      cfg.Engagement.Milestones,
		UpvoteNotifyMax: cfg.Engagement.UpvoteNotifyMax,
		Cache:           store,
	})
	if err != nil {
		return nil, err
	}

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	api.GET("/auth/me", authHandler.Me)

	if err := registerPostRoutes(api, db, notifier); err != nil {
		return nil, err
	}
	registerNotificationRoutes(api, handlers.NewNotificationHandler(notifier))
	if err := registerMessageRoutes(api, db); err != nil {
		return nil, err
	}

	return r, nil
}
