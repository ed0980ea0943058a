package main

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-attendance/internal/handler"
	"github.com/noah-isme/smart-attendance/internal/middleware"
	"github.com/noah-isme/smart-attendance/internal/models"
	"github.com/noah-isme/smart-attendance/internal/service"
	"github.com/noah-isme/smart-attendance/pkg/config"
	"github.com/noah-isme/smart-attendance/pkg/logger"
	"github.com/noah-isme/smart-attendance/pkg/middleware/requestid"
)

type routes struct {
	tokens   middleware.TokenValidator
	metrics  *service.MetricsService
	auth     *handler.AuthHandler
	users    *handler.UserHandler
	courses  *handler.CourseHandler
	sessions *handler.SessionHandler
	reports  *handler.ReportHandler
	health   *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, rt routes) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.Metrics(rt.metrics))

	r.GET("/health", rt.health.Health)
	r.GET("/ready", rt.health.Ready)
	r.GET("/metrics", rt.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authn := middleware.JWT(rt.tokens)
	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin)

	api.POST("/auth/register", middleware.OptionalJWT(rt.tokens), rt.auth.Register)
	api.POST("/auth/login", rt.auth.Login)
	api.GET("/qr/:token", rt.sessions.PublicQR)

	protected := api.Group("", authn)
	protected.POST("/redeem", rt.sessions.RedeemCode)
	protected.GET("/me/attendance", rt.reports.History)

	users := protected.Group("/users", admin)
	users.GET("", rt.users.List)
	users.PATCH("/:id/role", rt.users.UpdateRole)
	users.POST("/:id/cards", rt.users.AssignCard)

	courses := protected.Group("/courses")
	courses.GET("", rt.courses.List)
	courses.POST("", staff, rt.courses.Create)
	courses.POST("/:id/enrollments", staff, rt.courses.Enroll)
	courses.GET("/:id/roster", staff, rt.courses.Roster)

	sessions := protected.Group("/sessions")
	sessions.GET("", staff, rt.sessions.List)
	sessions.POST("", staff, rt.sessions.Create)
	sessions.GET("/:id", rt.sessions.Get)
	sessions.POST("/:id/redeem", rt.sessions.Redeem)
	sessions.GET("/:id/qr", staff, rt.sessions.QR)
	sessions.GET("/:id/qr-link", staff, rt.sessions.QRLink)
	sessions.GET("/:id/absentees", staff, rt.sessions.Absentees)
	sessions.POST("/:id/absentees/notify", staff, rt.sessions.NotifyAbsentees)

	reports := protected.Group("/attendance", staff)
	reports.GET("", rt.reports.Attendance)
	reports.GET("/export", rt.reports.Export)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", requestid.HeaderKey)
	cfg.ExposeHeaders = []string{requestid.HeaderKey, "Content-Disposition"}
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" && o != "*" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowed
	cfg.AllowCredentials = true
	return cfg
}
