package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/elo-edu/secretaria-api/api/swagger"
	"github.com/elo-edu/secretaria-api/internal/handler"
	"github.com/elo-edu/secretaria-api/internal/middleware"
	"github.com/elo-edu/secretaria-api/internal/models"
	"github.com/elo-edu/secretaria-api/internal/repository"
	"github.com/elo-edu/secretaria-api/internal/service"
	"github.com/elo-edu/secretaria-api/pkg/cache"
	"github.com/elo-edu/secretaria-api/pkg/config"
	"github.com/elo-edu/secretaria-api/pkg/database"
	"github.com/elo-edu/secretaria-api/pkg/export"
	"github.com/elo-edu/secretaria-api/pkg/logger"
	corsmiddleware "github.com/elo-edu/secretaria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/elo-edu/secretaria-api/pkg/middleware/requestid"
	"github.com/elo-edu/secretaria-api/pkg/qr"
)

// @title Secretaria Digital API
// @version 1.0.0
// @description Issues, signs and validates official school documents
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The cache is an optimization; the secretary runs without it.
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	}

	documentRepo := repository.NewDocumentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	disciplineRepo := repository.NewDisciplineRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	historySvc := service.NewHistoryService(disciplineRepo, models.OutcomePolicy{
		MinAverage:      cfg.Secretary.MinAverage,
		MinAttendance:   cfg.Secretary.MinAttendance,
		MaxDependencies: cfg.Secretary.MaxDependencies,
	}, logr)
	builderSvc := service.NewBuilderService(nil, nil, logr)
	signerSvc := service.NewSignerService(builderSvc, nil, logr)
	qrEncoder := qr.NewEncoder(cfg.Secretary.BaseURL)
	renderer := export.NewPDFRenderer()

	secretarySvc := service.NewSecretaryService(
		service.SecretaryServiceConfig{CodeMaxAttempts: cfg.Secretary.CodeMaxAttempts},
		studentRepo, academicRepo, institutionRepo, documentRepo,
		historySvc, builderSvc, signerSvc, qrEncoder, renderer,
		cacheRepo, auditRepo, metricsSvc, logr)
	validationSvc := service.NewValidationService(documentRepo, signerSvc, auditRepo, cacheRepo, metricsSvc,
		cfg.Secretary.ValidationCacheTTL, nil, logr)
	tokenSvc := service.NewDownloadTokenService(cfg.JWT.Secret, cfg.JWT.DownloadTTL, nil)

	validate := validator.New()
	documentHandler := handler.NewDocumentHandler(secretarySvc, tokenSvc, validate, cfg.Secretary.BaseURL)
	validationHandler := handler.NewValidationHandler(validationSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: QR validation and tokenized PDF downloads.
	api.GET("/validacao/:code", validationHandler.Validate)
	api.GET("/documents/download", documentHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.Operator(cfg.JWT.Secret))
	{
		secured.POST("/documents", documentHandler.Issue)
		secured.GET("/documents", documentHandler.List)
		secured.GET("/documents/stats", documentHandler.Stats)
		secured.GET("/documents/:code", documentHandler.Get)
		secured.POST("/documents/:code/cancel", documentHandler.Cancel)
		secured.POST("/documents/:code/reissue", documentHandler.Reissue)
		secured.GET("/documents/:code/pdf", documentHandler.RenderPDF)
		secured.GET("/documents/:code/download-url", documentHandler.DownloadURL)
		secured.GET("/institution", documentHandler.GetInstitution)
		secured.PUT("/institution", documentHandler.UpdateInstitution)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
