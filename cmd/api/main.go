package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mylugha/mylugha-api/api/swagger"
	"github.com/mylugha/mylugha-api/internal/handler"
	"github.com/mylugha/mylugha-api/internal/middleware"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/repository"
	"github.com/mylugha/mylugha-api/internal/service"
	"github.com/mylugha/mylugha-api/pkg/cache"
	"github.com/mylugha/mylugha-api/pkg/config"
	"github.com/mylugha/mylugha-api/pkg/database"
	"github.com/mylugha/mylugha-api/pkg/jobs"
	"github.com/mylugha/mylugha-api/pkg/logger"
	corsmiddleware "github.com/mylugha/mylugha-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mylugha/mylugha-api/pkg/middleware/requestid"
	"github.com/mylugha/mylugha-api/pkg/storage"
)

// @title MyLugha API
// @version 1.0.0
// @description Crowdsourced language data collection for under-documented languages
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	audioStorage, err := storage.NewLocalStorage(cfg.Audio.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare audio storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Audio.SignedURLSecret, cfg.Audio.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	languageRepo := repository.NewLanguageRepository(db)
	contributionRepo := repository.NewContributionRepository(db)

	policy := service.NewValidationPolicy(cfg.Validation)
	validationRepo := repository.NewValidationRepository(db, policy.NextStatus)

	authSvc := service.NewAuthService(userRepo, map[string]service.SocialVerifier{
		"google": service.NewGoogleVerifier(),
	}, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	metricsSvc := service.NewMetricsService()

	languageSvc := service.NewLanguageService(languageRepo, cacheRepo, nil, metricsSvc, cfg.Stats.CacheTTL, validate, logr)
	reconcileQueue := jobs.NewQueue("language_reconcile", languageSvc.ReconcileJobHandler(), jobs.QueueConfig{
		Workers:    cfg.Reconcile.Workers,
		BufferSize: cfg.Reconcile.BufferSize,
		Logger:     logr,
	})
	languageSvc.AttachReconcileQueue(reconcileQueue)

	contributionSvc := service.NewContributionService(contributionRepo, languageRepo, audioStorage, signer, cacheRepo, cfg.Audio, validate, logr)
	validationSvc := service.NewValidationService(validationRepo, contributionRepo, userRepo, validate, logr)
	exportSvc := service.NewExportService(contributionRepo, languageRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	languageHandler := handler.NewLanguageHandler(languageSvc)
	contributionHandler := handler.NewContributionHandler(contributionSvc, metricsSvc)
	validationHandler := handler.NewValidationHandler(validationSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/social", authHandler.SocialLogin)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	languages := api.Group("/languages")
	{
		languages.GET("", languageHandler.List)
		languages.GET("/:code", languageHandler.Get)
		languages.GET("/:code/stats", languageHandler.Stats)
		languages.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), languageHandler.Create)
		languages.POST("/:code/reconcile", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), languageHandler.Reconcile)
	}

	contributions := api.Group("/contributions")
	{
		contributions.GET("", middleware.OptionalJWT(authSvc), contributionHandler.List)
		contributions.GET("/:id", contributionHandler.Get)
		contributions.GET("/:id/audio", contributionHandler.DownloadAudio)
		contributions.POST("/text", middleware.JWT(authSvc), contributionHandler.CreateText)
		contributions.POST("/audio", middleware.JWT(authSvc), contributionHandler.CreateAudio)
	}

	validations := api.Group("/validations", middleware.JWT(authSvc))
	{
		validations.GET("", validationHandler.List)
		validations.GET("/:id", validationHandler.Get)
		validations.POST("", validationHandler.Create)
	}

	if cfg.Exports.Enabled {
		exports := api.Group("/exports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		exports.GET("/languages/:code", exportHandler.Export)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconcileQueue.Start(ctx)
	defer reconcileQueue.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
