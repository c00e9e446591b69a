package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/harmonic-labs/academy-api/api/swagger"
	"github.com/harmonic-labs/academy-api/internal/handler"
	internalmiddleware "github.com/harmonic-labs/academy-api/internal/middleware"
	"github.com/harmonic-labs/academy-api/internal/models"
	"github.com/harmonic-labs/academy-api/internal/repository"
	"github.com/harmonic-labs/academy-api/internal/service"
	"github.com/harmonic-labs/academy-api/pkg/cache"
	"github.com/harmonic-labs/academy-api/pkg/config"
	"github.com/harmonic-labs/academy-api/pkg/database"
	"github.com/harmonic-labs/academy-api/pkg/export"
	"github.com/harmonic-labs/academy-api/pkg/jobs"
	"github.com/harmonic-labs/academy-api/pkg/logger"
	corsmiddleware "github.com/harmonic-labs/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/harmonic-labs/academy-api/pkg/middleware/requestid"
	"github.com/harmonic-labs/academy-api/pkg/storage"
)

// @title Academy API
// @version 1.0.0
// @description Music academy management: students, class batches, attendance, and reports
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories
	studentRepo := repository.NewStudentRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, studentRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	batchSvc := service.NewBatchService(batchRepo, attendanceRepo, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, batchRepo, cacheRepo, metricsSvc, nil, logr, cfg.Reports.PageSize)
	reportSvc := service.NewReportService(attendanceRepo, cacheRepo, metricsSvc, logr, cfg.Reports.CacheEnabled, cfg.Reports.CacheTTL)

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportRepo, attendanceRepo, nil, fileStore, signer, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		worker := service.NewExportWorker(exportRepo, exportSvc, metricsSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.SetQueue(exportQueue)
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		exportSvc.RecoverPendingJobs(ctx)
		exportSvc.StartCleanup(ctx)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)

	// Download links carry their own signed token, no session required.
	api.GET("/reports/download/:token", reportHandler.Download)

	secured := api.Group("", internalmiddleware.JWT(authSvc))

	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)

	secured.GET("/students", adminOnly, studentHandler.List)
	secured.POST("/students", adminOnly, studentHandler.Create)
	secured.GET("/students/:id", internalmiddleware.RequireSelfOrRoles("id", models.RoleAdmin), studentHandler.Get)
	secured.PUT("/students/:id", adminOnly, studentHandler.Update)

	secured.GET("/batches", adminOnly, batchHandler.List)
	secured.POST("/batches", adminOnly, batchHandler.Create)
	secured.GET("/batches/:id", adminOnly, batchHandler.Get)
	secured.PUT("/batches/:id", adminOnly, batchHandler.Update)
	secured.DELETE("/batches/:id", adminOnly, batchHandler.Delete)

	secured.POST("/attendance", adminOnly, attendanceHandler.Record)
	secured.GET("/attendance", attendanceHandler.List)
	secured.GET("/attendance/student/:studentId",
		internalmiddleware.RequireSelfOrRoles("studentId", models.RoleAdmin),
		attendanceHandler.ListByStudent)

	secured.GET("/reports/attendance", reportHandler.Attendance)
	secured.POST("/reports/attendance/export", adminOnly, reportHandler.CreateExport)
	secured.GET("/reports/exports/:id", adminOnly, reportHandler.ExportStatus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
