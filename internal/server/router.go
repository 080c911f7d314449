package server

import (
	"time"

	"taskify/backend/internal/handlers"
	"taskify/backend/internal/middleware"
	"taskify/backend/internal/monitoring"
	"taskify/backend/internal/services"
	"taskify/backend/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps is everything the router needs. OAuth is optional; without it the
// Google routes are not mounted.
type Deps struct {
	AuthService   services.AuthService
	UserService   services.UserService
	TaskService   services.TaskService
	Authenticator middleware.Authenticator
	OAuth         handlers.OAuthProvider

	RateLimiter     *middleware.IPRateLimiter
	AuthRateLimiter gin.HandlerFunc

	Metrics     *monitoring.Metrics
	Health      *monitoring.HealthChecker
	CacheStats  func() map[string]interface{}
	ServiceName string

	AllowedOrigins []string
	Development    bool
	Log            zerolog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryWithLog(d.Log))
	if d.ServiceName != "" {
		router.Use(telemetry.Middleware(d.ServiceName))
	}
	router.Use(middleware.RequestLogger(d.Log))
	router.Use(monitoring.PrometheusMiddleware())
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
	}
	router.Use(middleware.Secure(middleware.SecureOptions(d.Development)))
	router.Use(cors.New(corsConfig(d.AllowedOrigins)))
	if d.RateLimiter != nil {
		router.Use(d.RateLimiter.Middleware())
	}

	if d.Health != nil {
		router.GET("/health", d.Health.HealthHandler())
		router.GET("/health/live", d.Health.LivenessHandler())
		router.GET("/health/ready", d.Health.ReadinessHandler())
	}
	router.GET("/metrics", monitoring.PrometheusHandler())
	if d.Metrics != nil {
		router.GET("/metrics/app", d.Metrics.Handler(d.CacheStats))
	}

	authn := middleware.Authenticate(d.Authenticator, d.Log)
	authThrottle := d.AuthRateLimiter
	if authThrottle == nil {
		authThrottle = func(c *gin.Context) { c.Next() }
	}

	authHandler := handlers.NewAuthHandler(d.AuthService, d.Log)
	userHandler := handlers.NewUserHandler(d.UserService, d.Log)
	taskHandler := handlers.NewTaskHandler(d.TaskService, d.Log)

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/sign-up", authThrottle, authHandler.SignUp)
		authGroup.POST("/login", authThrottle, authHandler.Login)
		authGroup.POST("/logout", authn, authHandler.Logout)
		authGroup.POST("/logout-all", authn, authHandler.LogoutAll)
		if d.OAuth != nil {
			oauthHandler := handlers.NewOAuthHandler(d.OAuth, d.AuthService, d.Log)
			authGroup.GET("/google", oauthHandler.Begin)
			authGroup.GET("/google/callback", oauthHandler.Callback)
		}

		userGroup := v1.Group("/user", authn)
		userGroup.GET("/get-profile", userHandler.GetProfile)
		userGroup.PUT("/update-profile", userHandler.UpdateProfile)
		userGroup.DELETE("/delete-account", userHandler.DeleteAccount)

		taskGroup := v1.Group("/task", authn)
		taskGroup.POST("/create-task", taskHandler.CreateTask)
		taskGroup.GET("/tasks", taskHandler.ListTasks)
		taskGroup.GET("/tasks/:uuid", taskHandler.GetTask)
		taskGroup.GET("/past-tasks", taskHandler.PastTasks)
		taskGroup.PUT("/update-task", taskHandler.UpdateTask)
		taskGroup.PUT("/update-task-status", taskHandler.UpdateTaskStatus)
		taskGroup.DELETE("/delete-task", taskHandler.DeleteTask)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
