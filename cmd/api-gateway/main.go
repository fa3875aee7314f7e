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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly timetable generation for teachers, subjects and groups
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, redisClient != nil)

	teacherSvc := service.NewTeacherService(teacherRepo, subjectRepo, db, validate, logr, service.TeacherServiceConfig{
		DefaultMaxHoursPerDay: cfg.Scheduler.DefaultMaxHoursPerDay,
	})
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, validate)
	timetableSvc := service.NewTimetableService(teacherRepo, subjectRepo, groupRepo, timetableRepo, assignmentRepo, db, cacheSvc, metrics, validate, logr, service.TimetableServiceConfig{
		DefaultShift:    cfg.Scheduler.DefaultShift,
		MaxGroupsPerRun: cfg.Scheduler.MaxGroupsPerRun,
		Workers:         cfg.Scheduler.Workers,
		MaxPasses:       cfg.Scheduler.MaxPasses,
		ExcludedTerms:   cfg.Scheduler.ExcludedTerms,
		JobStatusTTL:    cfg.Scheduler.JobStatusTTL,
		CacheTTL:        cfg.Cache.TTL,
	})
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration})

	queue := jobs.NewQueue("timetables", timetableSvc.HandleJob, jobs.QueueConfig{
		Workers:     cfg.Scheduler.Workers,
		BufferSize:  cfg.Scheduler.JobQueueSize,
		MaxRetries:  cfg.Scheduler.JobRetries,
		RetryDelay:  2 * time.Second,
		JobTimeout:  5 * time.Minute,
		OnExhausted: timetableSvc.OnJobExhausted,
		Logger:      logr,
	})
	queue.Start(ctx)
	timetableSvc.AttachQueue(queue)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    cache.Ping(redisClient),
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), cfg, tokenSvc, routeHandlers{
		teachers:   handler.NewTeacherHandler(teacherSvc, cfg.Import.MaxFileSizeBytes),
		subjects:   handler.NewSubjectHandler(subjectSvc),
		groups:     handler.NewGroupHandler(groupSvc),
		timetables: handler.NewTimetableHandler(timetableSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	queue.Stop()
}

type routeHandlers struct {
	teachers   *handler.TeacherHandler
	subjects   *handler.SubjectHandler
	groups     *handler.GroupHandler
	timetables *handler.TimetableHandler
}

func registerRoutes(api *gin.RouterGroup, cfg *config.Config, tokens internalmiddleware.TokenValidator, h routeHandlers) {
	read, write := internalmiddleware.Passthrough(), internalmiddleware.Passthrough()
	if cfg.JWT.AuthRequired {
		api.Use(internalmiddleware.JWT(tokens))
		write = internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	} else {
		api.Use(internalmiddleware.OptionalJWT(tokens))
	}

	teachers := api.Group("/teachers")
	teachers.GET("", read, h.teachers.List)
	teachers.GET("/:id", read, h.teachers.Get)
	teachers.POST("", write, h.teachers.Create)
	teachers.POST("/import", write, h.teachers.Import)
	teachers.PUT("/:id", write, h.teachers.Update)
	teachers.DELETE("/:id", write, h.teachers.Delete)

	subjects := api.Group("/subjects")
	subjects.GET("", read, h.subjects.List)
	subjects.GET("/:id", read, h.subjects.Get)
	subjects.POST("", write, h.subjects.Create)
	subjects.PUT("/:id", write, h.subjects.Update)
	subjects.DELETE("/:id", write, h.subjects.Delete)

	groups := api.Group("/groups")
	groups.GET("", read, h.groups.List)
	groups.POST("", write, h.groups.Create)

	timetables := api.Group("/timetables")
	timetables.POST("/generate", write, h.timetables.Generate)
	timetables.POST("/preview", write, h.timetables.Preview)
	timetables.POST("/proposals/:id/commit", write, h.timetables.CommitProposal)
	timetables.POST("/jobs", write, h.timetables.Enqueue)
	timetables.GET("/jobs/:id", read, h.timetables.JobStatus)
	timetables.GET("", read, h.timetables.List)
	timetables.DELETE("", write, h.timetables.DeleteAll)
	timetables.GET("/:id", read, h.timetables.Get)
	timetables.PATCH("/:id/status", write, h.timetables.UpdateStatus)
	timetables.DELETE("/:id", write, h.timetables.Delete)
	timetables.GET("/:id/export", read, h.timetables.Export)
}
