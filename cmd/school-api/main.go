package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/arthurnacious/school-manager-api/api/swagger"
	"github.com/arthurnacious/school-manager-api/internal/handler"
	"github.com/arthurnacious/school-manager-api/internal/middleware"
	"github.com/arthurnacious/school-manager-api/internal/models"
	"github.com/arthurnacious/school-manager-api/internal/repository"
	"github.com/arthurnacious/school-manager-api/internal/service"
	"github.com/arthurnacious/school-manager-api/pkg/cache"
	"github.com/arthurnacious/school-manager-api/pkg/config"
	"github.com/arthurnacious/school-manager-api/pkg/database"
	"github.com/arthurnacious/school-manager-api/pkg/export"
	"github.com/arthurnacious/school-manager-api/pkg/logger"
	corsmiddleware "github.com/arthurnacious/school-manager-api/pkg/middleware/cors"
	reqidmiddleware "github.com/arthurnacious/school-manager-api/pkg/middleware/requestid"
)

// @title School Manager API
// @version 1.0.0
// @description School management backend with rotating refresh token authentication
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, tokenRepo, cacheRepo, metricsSvc, validate, logr, service.AuthConfig{
		Secret:             cfg.Auth.Secret,
		AccessTokenExpiry:  cfg.Auth.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
		Issuer:             cfg.Auth.Issuer,
		PermissionCacheTTL: cfg.Permissions.CacheTTL,
	})
	userSvc := service.NewUserService(userRepo, cacheRepo, validate, logr)
	deptSvc := service.NewDepartmentService(deptRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, deptRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, courseRepo, validate, logr)
	rosterSvc := service.NewRosterService(rosterRepo, courseRepo, subjectRepo, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, rosterRepo, validate, logr)
	exportSvc := service.NewExportService(rosterRepo, export.NewCSVExporter(), export.NewPDFExporter(cfg.Exports.SchoolName), logr)

	authHandler := handler.NewAuthHandler(authSvc, metricsSvc)
	userHandler := handler.NewUserHandler(userSvc)
	deptHandler := handler.NewDepartmentHandler(deptSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, subjectSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc, exportSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)

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
		if err := db.Ping(); err != nil {
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

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		auth.DELETE("/tokens/expired", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), authHandler.PurgeExpired)
	}

	api.GET("/audit-logs", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), userHandler.AuditLogs)

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleFinance), userHandler.List)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleFinance), "SELF"), userHandler.Get)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
		users.GET("/:id/permissions", middleware.RequireRoles(models.RoleAdmin), userHandler.Permissions)
		users.POST("/:id/permissions", middleware.RequireRoles(models.RoleAdmin), userHandler.GrantPermission)
		users.DELETE("/:id/permissions", middleware.RequireRoles(models.RoleAdmin), userHandler.RevokePermission)
	}

	departments := api.Group("/departments", middleware.JWT(authSvc), middleware.Audit(userRepo, "department"))
	{
		departments.GET("", deptHandler.List)
		departments.GET("/:id", deptHandler.Get)
		departments.POST("", middleware.RequirePermission(authSvc, "create_departments"), deptHandler.Create)
		departments.PUT("/:id", middleware.RequirePermission(authSvc, "edit_departments"), deptHandler.Update)
		departments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), deptHandler.Delete)
		departments.GET("/:id/staff", deptHandler.Staff)
		departments.POST("/:id/staff", middleware.RequirePermission(authSvc, "edit_departments"), deptHandler.AddStaff)
		departments.DELETE("/:id/staff/:userId", middleware.RequirePermission(authSvc, "edit_departments"), deptHandler.RemoveStaff)
	}

	courses := api.Group("/courses", middleware.JWT(authSvc), middleware.Audit(userRepo, "course"))
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RequirePermission(authSvc, "create_courses"), courseHandler.Create)
		courses.PUT("/:id", middleware.RequirePermission(authSvc, "edit_courses"), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), courseHandler.Delete)
		courses.GET("/:id/subjects", courseHandler.Subjects)
		courses.POST("/:id/subjects", middleware.RequirePermission(authSvc, "edit_courses"), courseHandler.CreateSubject)
	}

	subjects := api.Group("/subjects", middleware.JWT(authSvc), middleware.Audit(userRepo, "subject"))
	{
		subjects.GET("/:id", subjectHandler.Get)
		subjects.PUT("/:id", middleware.RequirePermission(authSvc, "edit_courses"), subjectHandler.Update)
		subjects.DELETE("/:id", middleware.RequirePermission(authSvc, "edit_courses"), subjectHandler.Delete)
	}

	rosters := api.Group("/rosters", middleware.JWT(authSvc), middleware.Audit(userRepo, "roster"))
	{
		rosters.GET("", rosterHandler.List)
		rosters.GET("/:id", rosterHandler.Get)
		rosters.POST("", middleware.RequirePermission(authSvc, "create_rosters"), rosterHandler.Create)
		rosters.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), rosterHandler.Delete)
		rosters.GET("/:id/students", rosterHandler.Students)
		rosters.POST("/:id/students", middleware.RequirePermission(authSvc, "edit_rosters"), rosterHandler.EnrollStudent)
		rosters.DELETE("/:id/students/:studentId", middleware.RequirePermission(authSvc, "edit_rosters"), rosterHandler.RemoveStudent)
		rosters.GET("/:id/sessions", rosterHandler.Sessions)
		rosters.POST("/:id/sessions", middleware.RequirePermission(authSvc, "edit_rosters"), rosterHandler.CreateSession)
		rosters.POST("/:id/marks", middleware.RequirePermission(authSvc, "edit_rosters"), rosterHandler.RecordMark)
		if cfg.Exports.Enabled {
			rosters.GET("/:id/marks/export", rosterHandler.ExportMarks)
			rosters.GET("/:id/attendance/export", rosterHandler.ExportAttendance)
		}
	}

	sessions := api.Group("/sessions", middleware.JWT(authSvc), middleware.Audit(userRepo, "session"))
	{
		sessions.POST("/:sessionId/attendance", middleware.RequirePermission(authSvc, "edit_rosters"), rosterHandler.RecordAttendance)
	}

	payments := api.Group("/payments", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleFinance), middleware.Audit(userRepo, "payment"))
	{
		payments.GET("", paymentHandler.List)
		payments.GET("/:id", paymentHandler.Get)
		payments.POST("", paymentHandler.Create)
		payments.PATCH("/:id/status", paymentHandler.UpdateStatus)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
