package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DangLinWang11/tip-app-sub004/config"
	"github.com/DangLinWang11/tip-app-sub004/internal/api"
	"github.com/DangLinWang11/tip-app-sub004/internal/draft"
	"github.com/DangLinWang11/tip-app-sub004/internal/middleware"
	"github.com/DangLinWang11/tip-app-sub004/internal/router"
	"github.com/DangLinWang11/tip-app-sub004/internal/service"
)

// Server wires the service layer to the HTTP surface.
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    *config.Config
}

// New builds the full handler graph. The Redis client may be nil in tests;
// rate limiting is then disabled and drafts live only in memory.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, objectStore service.ObjectStore) *Server {
	authService := service.NewAuthService(db, cfg.JWTSecret)
	restaurantService := service.NewRestaurantService(db)
	reviewService := service.NewReviewService(db, redisClient)

	var kv draft.KV = noopKV{}
	if redisClient != nil {
		kv = &draft.RedisKV{Client: redisClient}
	}
	draftStore := draft.NewStore(kv)
	manager := draft.NewManager(draftStore)

	mediaService := service.NewMediaService(objectStore)
	submitService := service.NewSubmitService(reviewService, draftStore)

	var uploadLimiter, submitLimiter *middleware.RateLimiter
	if redisClient != nil {
		uploadLimiter = middleware.NewMediaUploadRateLimiter(redisClient)
		submitLimiter = middleware.NewSubmissionRateLimiter(redisClient)
	}

	authHandler := api.NewAuthHandler(authService)
	draftHandler := api.NewDraftHandler(manager, restaurantService, mediaService, submitService, authService, uploadLimiter, submitLimiter)
	reviewHandler := api.NewReviewHandler(reviewService, restaurantService, authService)

	r := router.SetupRouter(authHandler, draftHandler, reviewHandler)

	return &Server{
		router: r,
		cfg:    cfg,
	}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.cfg.ServerHost + ":" + s.cfg.ServerPort,
		Handler: s.router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}

// noopKV keeps sessions purely in memory when no Redis is configured.
type noopKV struct{}

func (noopKV) Get(ctx context.Context, key string) (string, error) { return "", draft.ErrNotFound }
func (noopKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (noopKV) Del(ctx context.Context, key string) error { return nil }
