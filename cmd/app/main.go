package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_webapp/internal/config"
	"todo_webapp/internal/db"
	httpServer "todo_webapp/internal/http"
	"todo_webapp/internal/http/middleware"
	"todo_webapp/internal/logger"
	"todo_webapp/internal/migrations"
	"todo_webapp/internal/repository"
	"todo_webapp/internal/service"
	"todo_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	if err := migrations.Apply(ctx, dbPool); err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}

	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}

	taskRepo := repository.NewTaskRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	auditService := service.NewAuditService(dbPool)

	hub := ws.NewHub(taskRepo, cfg.TasksPageSize)
	if rdb != nil {
		hub.UseRelay(ctx, ws.NewRedisRelay(rdb, cfg.RedisEventsChannel))
	}

	taskService := service.NewTaskService(taskRepo, service.TaskServiceConfig{
		PageSize: cfg.TasksPageSize,
		Notifier: hub,
		Audit:    auditService,
	})
	authService := service.NewAuthService(userRepo, auditService)

	if cfg.SeedDefaults && cfg.AdminPassword != "" {
		seedDefaults(ctx, cfg, authService, taskService)
	}

	if !cfg.LogJSON && cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(cfg.AllowedOrigin),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Config:       cfg,
		DB:           dbPool,
		Redis:        rdb,
		Tasks:        taskService,
		Auth:         authService,
		AuditService: auditService,
		Hub:          hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// seedDefaults creates the admin account on an empty database and gives it
// the sample tasks.
func seedDefaults(ctx context.Context, cfg *config.Config, auth *service.AuthService, tasks *service.TaskService) {
	admin, created, err := auth.EnsureDefaultAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logger.Error("failed to ensure default admin", "error", err)
		return
	}
	if admin == nil {
		return
	}
	if !created {
		logger.Debug("default admin already present", "user_id", admin.ID)
	}

	n, err := tasks.CreateSampleTasks(ctx, admin.ID)
	if err != nil {
		logger.Error("failed to create sample tasks", "error", err)
		return
	}
	if n > 0 {
		logger.Info("sample tasks created", "user_id", admin.ID, "count", n)
	}
}
