package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

type routerDeps struct {
	metrics   *service.MetricsService
	auth      *service.AuthService
	users     *service.UserService
	schools   *service.SchoolService
	teachers  *service.TeacherService
	classes   *service.ClassService
	generator *service.ScheduleGeneratorService
	transfer  *service.TransferService
	exports   *service.ExportJobService
	audit     *repository.UserRepository
	db        *sqlx.DB
	redis     func(context.Context) error
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	checks := map[string]handler.Pinger{"postgres": deps.db, "redis": nil}
	if deps.redis != nil {
		checks["redis"] = handler.PingFunc(deps.redis)
	}
	ops := handler.NewMetricsHandler(deps.metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(deps.auth)
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))
	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/change-password", authHandler.ChangePassword)
	secured.GET("/auth/me", authHandler.Me)

	userHandler := handler.NewUserHandler(deps.users)
	users := secured.Group("/users", middleware.RequireRoles(models.RoleSuperAdmin))
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	schoolHandler := handler.NewSchoolHandler(deps.schools)
	teacherHandler := handler.NewTeacherHandler(deps.schools, deps.teachers)
	classHandler := handler.NewClassHandler(deps.schools, deps.classes)
	transferHandler := handler.NewTransferHandler(deps.transfer)
	writers := middleware.Writers()

	secured.GET("/schools", schoolHandler.List)
	secured.GET("/schools/export", transferHandler.ExportSchools)
	secured.POST("/schools/import", writers, transferHandler.ImportSchools)
	secured.POST("/schools", writers, middleware.Audit(deps.audit, logr, models.AuditActionSchoolCreate, "school", "id"), schoolHandler.Create)

	school := secured.Group("/schools/:id")
	school.GET("", schoolHandler.Get)
	school.GET("/week", schoolHandler.Week)
	school.PUT("", writers, middleware.Audit(deps.audit, logr, models.AuditActionSchoolUpdate, "school", "id"), schoolHandler.Update)
	school.DELETE("", writers, middleware.Audit(deps.audit, logr, models.AuditActionSchoolDelete, "school", "id"), schoolHandler.Delete)

	school.GET("/teachers", teacherHandler.List)
	school.GET("/teachers/:teacherId", teacherHandler.Get)
	school.POST("/teachers", writers, teacherHandler.Create)
	school.PUT("/teachers/:teacherId", writers, teacherHandler.Update)
	school.DELETE("/teachers/:teacherId", writers, teacherHandler.Delete)

	school.GET("/classes", classHandler.List)
	school.GET("/classes/:classId", classHandler.Get)
	school.POST("/classes", writers, classHandler.Create)
	school.PUT("/classes/:classId", writers, classHandler.Update)
	school.DELETE("/classes/:classId", writers, classHandler.Delete)
	school.GET("/classes/:classId/links", classHandler.Links)
	school.PUT("/classes/:classId/links", writers, classHandler.ReplaceLinks)

	school.GET("/roster/teachers", transferHandler.ExportTeachers)
	school.POST("/roster/teachers", writers, transferHandler.ImportTeachers)
	school.GET("/roster/classes", transferHandler.ExportClasses)
	school.POST("/roster/classes", writers, transferHandler.ImportClasses)

	if cfg.Scheduler.Enabled {
		gen := handler.NewScheduleGeneratorHandler(deps.generator)
		timetable := school.Group("/timetable")
		timetable.POST("/generate", writers, gen.Generate)
		timetable.GET("/current", gen.Current)
		timetable.POST("/versions", writers, gen.SaveVersion)
		timetable.GET("/versions", gen.ListVersions)
		timetable.GET("/versions/latest", gen.LatestVersion)
		timetable.GET("/versions/:versionId", gen.GetVersion)
		timetable.POST("/versions/:versionId/load", writers, gen.LoadVersion)
		timetable.DELETE("/versions/:versionId", writers, gen.DeleteVersion)
	}

	if deps.exports != nil {
		exports := handler.NewExportHandler(deps.exports)
		school.POST("/timetable/exports", exports.Create)
		api.GET("/timetable/exports/download", exports.Download)
		secured.GET("/timetable/exports/:jobId", exports.Status)
	}

	return r
}
