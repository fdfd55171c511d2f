package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-admin-panel/api/swagger"
	"github.com/noah-isme/sma-admin-panel/internal/handler"
	"github.com/noah-isme/sma-admin-panel/internal/middleware"
	"github.com/noah-isme/sma-admin-panel/internal/models"
	"github.com/noah-isme/sma-admin-panel/internal/service"
	"github.com/noah-isme/sma-admin-panel/pkg/config"
	"github.com/noah-isme/sma-admin-panel/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-admin-panel/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-admin-panel/pkg/middleware/requestid"
)

func newRouter(a *app) *gin.Engine {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	carriers := func(c *gin.Context) service.SessionCarrier { return a.cookies.Load(c) }

	api := r.Group(a.cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(a.auth, carriers, validator.New())
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/session", authHandler.Session)
	auth.POST("/logout", authHandler.Logout)

	userHandler := handler.NewUserHandler(a.users)
	users := api.Group("/users",
		middleware.RequireSession(a.auth, carriers, a.cfg.LoginPath),
		middleware.RequireRoles(models.RoleAdmin),
	)
	users.GET("", userHandler.List)
	users.GET("/export", userHandler.Export)

	return r
}
