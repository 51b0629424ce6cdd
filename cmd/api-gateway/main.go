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
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

// @title SMA Timetable API
// @version 1.0.0
// @description School timetable generation, versioning and export service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	case redisClient == nil:
		logr.Info("redis disabled by configuration")
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	linkRepo := repository.NewClassLinkRepository(db)
	versionRepo := repository.NewScheduleVersionRepository(db)
	exportRepo := repository.NewExportJobRepository(db)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-timetable-api",
	})
	if cfg.Bootstrap.AdminEmail != "" {
		created, err := authSvc.EnsureBootstrapAdmin(ctx, service.BootstrapAdmin{
			Email:    cfg.Bootstrap.AdminEmail,
			Password: cfg.Bootstrap.AdminPassword,
			FullName: cfg.Bootstrap.AdminName,
		})
		if err != nil {
			logr.Fatal("bootstrap admin failed", zap.Error(err))
		}
		if created {
			logr.Info("bootstrap superadmin created", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
	}

	schoolSvc := service.NewSchoolService(schoolRepo, service.WeekDefaults{
		Days:       cfg.Scheduler.DefaultDays,
		Slots:      cfg.Scheduler.DefaultSlots,
		Classifier: timetable.NewClassifier(cfg.Scheduler.BreakKeywords...),
	}, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, linkRepo, teacherRepo, validate, logr)
	userSvc := service.NewUserService(users, validate, logr)

	generator := service.NewScheduleGeneratorService(schoolSvc, service.ScheduleGeneratorRepositories{
		Teachers: teacherRepo,
		Classes:  classRepo,
		Links:    linkRepo,
		Versions: versionRepo,
		Audit:    users,
		Tx:       db,
	}, cacheSvc, metrics, validate, logr, service.ScheduleGeneratorConfig{
		ProposalTTL:     cfg.Scheduler.ProposalTTL,
		CacheTTL:        cfg.Scheduler.CacheTTL,
		DefaultStrategy: timetable.Strategy(cfg.Scheduler.DefaultStrategy),
	})

	transferSvc := service.NewTransferService(schoolSvc, service.TransferRepositories{
		Teachers: teacherRepo,
		Classes:  classRepo,
		Links:    linkRepo,
		Audit:    users,
		Tx:       db,
	}, validate, logr)

	var exportJobs *service.ExportJobService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("export storage unavailable", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exporter := service.NewExportService(generator, files, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr)
		worker := service.NewExportWorker(exportRepo, exporter, metrics, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("timetable-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		exportJobs = service.NewExportJobService(schoolSvc, generator, exportRepo, exportQueue, exporter, validate, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		})
		exportJobs.RecoverPendingJobs(ctx)
		exportJobs.StartCleanup(ctx)
	}

	r := newRouter(cfg, logr, routerDeps{
		metrics:   metrics,
		auth:      authSvc,
		users:     userSvc,
		schools:   schoolSvc,
		teachers:  teacherSvc,
		classes:   classSvc,
		generator: generator,
		transfer:  transferSvc,
		exports:   exportJobs,
		audit:     users,
		db:        db,
		redis:     redisPinger(redisClient),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func redisPinger(client *redis.Client) func(context.Context) error {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
