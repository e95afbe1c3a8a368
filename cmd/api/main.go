package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"presence-sync-service/internal/config"
	"presence-sync-service/internal/database"
	"presence-sync-service/internal/graph"
	"presence-sync-service/internal/job"
	"presence-sync-service/internal/metrics"
	"presence-sync-service/internal/repository"
	"presence-sync-service/internal/router"
	"presence-sync-service/internal/sync"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Presence Sync Service",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("group_id", cfg.Graph.GroupID),
		zap.Int("sync_interval_minutes", cfg.Sync.IntervalMinutes),
	)

	// Initialize database
	db, err := database.New(database.Config{
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime(),
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Database connected successfully")

	// Run auto migration
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed")

	// Initialize metrics
	m := metrics.New()
	database.RegisterMetricsCallbacks(db, m)
	logger.Info("Metrics initialized")

	// Wire the sync engine
	tokens := graph.NewTokenProvider(&cfg.Graph, logger)
	client := graph.NewClient(&cfg.Graph, logger, m)
	users := repository.NewUserRepository(db)
	presences := repository.NewPresenceRepository(db)
	reconciler := sync.NewReconciler(users, logger)
	upserter := sync.NewUpserter(users, presences, logger)
	syncer := sync.NewSyncer(cfg.Graph.GroupID, tokens, client, reconciler, upserter, logger)
	pollJob := job.NewPollJob(syncer, m, logger)

	// Schedule the poll cycle
	scheduler := cron.New()
	spec := fmt.Sprintf("@every %dm", cfg.Sync.IntervalMinutes)
	if _, err := scheduler.AddJob(spec, pollJob); err != nil {
		logger.Fatal("Failed to schedule poll job", zap.Error(err))
	}
	scheduler.Start()
	logger.Info("Poll job scheduled", zap.String("spec", spec))

	if cfg.Sync.RunOnStart {
		go pollJob.Run()
	}

	// Setup router, sharing the repositories the sync engine uses
	r := router.Setup(router.Config{
		Users:     users,
		Presences: presences,
		Logger:    logger,
		JWTSecret: cfg.Auth.SecretKey,
		BasePath:  cfg.Server.BasePath,
		Metrics:   m,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
	}

	// Start server in goroutine
	go func() {
		logger.Info("Presence Sync Service started successfully",
			zap.String("address", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Stop the scheduler; a running cycle finishes before Stop returns
	<-scheduler.Stop().Done()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
