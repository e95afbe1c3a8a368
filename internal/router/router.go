package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"presence-sync-service/internal/handler"
	"presence-sync-service/internal/metrics"
	"presence-sync-service/internal/middleware"
	"presence-sync-service/internal/repository"
)

// Config holds the router dependencies. Repositories are built once in main
// and shared with the sync engine.
type Config struct {
	Users     repository.UserRepository
	Presences repository.PresenceRepository
	Logger    *zap.Logger
	JWTSecret string
	BasePath  string
	Metrics   *metrics.Metrics
}

// Setup builds the gin engine with all routes and middleware
func Setup(cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health and metrics endpoints are not guarded
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	presenceHandler := handler.NewPresenceHandler(cfg.Users, cfg.Presences)

	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}

	api := r.Group(basePath)
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		api.GET("/history", presenceHandler.GetHistory)
		api.GET("/users", presenceHandler.GetUsers)
	}

	return r
}
