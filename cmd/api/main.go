package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"giveaways-backend/internal/common/logger"
	"giveaways-backend/internal/common/middleware"
	"giveaways-backend/internal/config"
	giveawayhttp "giveaways-backend/internal/features/giveaway/delivery/http"
	"giveaways-backend/internal/features/giveaway/repository/gormdb"
	giveawayservice "giveaways-backend/internal/features/giveaway/service"
	"giveaways-backend/internal/platform/db"
	redisplatform "giveaways-backend/internal/platform/redis"
	"giveaways-backend/internal/platform/scheduler"
	"giveaways-backend/internal/platform/whop"
)

func main() {
	// Create cancellable root context for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Missing .env is fine in containerized environments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("giveaways-backend", false)
		logger.Fatal().Err(err).Msg("config load failed")
	}

	logger.Init("giveaways-backend", cfg.Debug)

	gdb, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBAutoMigrate)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres open failed")
	}

	rdb, err := redisplatform.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis open failed")
	}
	defer rdb.Close()

	whopClient := whop.NewClient(cfg.WhopAPIBaseURL, cfg.WhopAPIKey)
	schedClient := scheduler.NewClient(cfg.SchedulerBaseURL, cfg.SchedulerToken)
	locker := redisplatform.NewLock(rdb)

	giveawayRepo := gormdb.NewGiveawayRepository(gdb)
	giveawaySvc := giveawayservice.NewGiveawayService(giveawayRepo, whopClient, whopClient, schedClient, locker, cfg)
	giveawayHandler := giveawayhttp.NewGiveawayHandler(giveawaySvc)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Accept",
		middleware.UserTokenHeader, middleware.CompanyIDHeader, middleware.ExperienceIDHeader,
	}
	if cfg.CORSAllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
	}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	giveawayHandler.RegisterRoutes(
		v1,
		middleware.UserAuth(cfg.UserTokenSecret),
		middleware.CallbackAuth(cfg.CallbackToken),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "giveaways-backend",
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := gdb.DB()
		if err == nil {
			err = sqlDB.PingContext(checkCtx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready", "error": "postgres unavailable"})
			return
		}
		if err := rdb.Ping(checkCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready", "error": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server exited")
}
