package http

import (
	"todo_webapp/internal/config"
	"todo_webapp/internal/http/handlers"
	"todo_webapp/internal/http/middleware"
	"todo_webapp/internal/service"
	"todo_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// Deps are the collaborators the HTTP layer is built from. DB, Redis and
// AuditService may be nil in tests.
type Deps struct {
	Config       *config.Config
	DB           handlers.Pinger
	Redis        *redis.Client
	Tasks        *service.TaskService
	Auth         *service.AuthService
	AuditService *service.AuditService
	Hub          *ws.Hub
}

// limiters are shared by every API prefix so that /api and /api/v1 draw
// from the same budget.
type limiters struct {
	auth     gin.HandlerFunc
	mutation gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config
	h := handlers.NewHandler(d.Tasks, d.Auth, d.AuditService)
	var hubStats interface{ ClientCount() int }
	if d.Hub != nil {
		hubStats = d.Hub
	}
	healthHandler := handlers.NewHealthHandler(d.DB, d.Redis, hubStats, cfg.AppVersion)

	middleware.SetRedisClient(d.Redis)
	l := limiters{
		auth:     middleware.RateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow),
		mutation: middleware.UserRateLimit("tasks", cfg.MutationRateLimit, cfg.MutationRateWindow),
	}

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, h, l)

	// Legacy /api routes
	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	api.GET("/health", healthHandler.Health)
	registerAPIRoutes(api, h, l)

	// Live task updates
	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, cfg.AllowedOrigin))
	}
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, l limiters) {
	// Auth
	api.POST("/auth/signup", l.auth, h.SignUp)
	api.POST("/auth/signin", l.auth, h.SignIn)

	// User profile
	api.GET("/me", middleware.JWT(), h.Me)
	api.GET("/me/activity", middleware.JWT(), h.MyActivity)

	// Mutation rate limiter (per user, not per IP)
	mutRL := l.mutation

	tasks := api.Group("/tasks")
	tasks.Use(middleware.JWT())
	{
		tasks.GET("", h.ListTasks)
		tasks.GET("/count", h.CountTasks)
		tasks.GET("/recent", h.RecentTasks)
		tasks.GET("/:id", h.GetTask)
		tasks.POST("", mutRL, h.CreateTask)
		tasks.PUT("/:id", mutRL, h.ReplaceTask)
		tasks.PATCH("/:id", mutRL, h.PatchTask)
		tasks.PATCH("/:id/complete", mutRL, h.CompleteTask)
		tasks.DELETE("/:id", mutRL, h.DeleteTask)
	}

	fixtures := api.Group("/fixtures")
	fixtures.Use(middleware.JWT(), mutRL)
	{
		fixtures.POST("/sample-tasks", h.CreateSampleTasks)
		fixtures.POST("/sample-tasks/reset", h.ResetSampleTasks)
	}
}
