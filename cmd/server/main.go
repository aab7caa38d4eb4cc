// Package main runs the events API server with the live feed, metrics and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/aura-events/backend/config"
	"github.com/aura-events/backend/internal/audit"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/metrics"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/permissions"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/internal/realtime"
	"github.com/aura-events/backend/internal/roles"
	"github.com/aura-events/backend/internal/users"
	"github.com/aura-events/backend/internal/worker"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/redis"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/storage"
	"github.com/aura-events/backend/pkg/validation"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: int32(cfg.Database.MaxConns)}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	if err := validation.Setup(events.RegisterValidators); err != nil {
		logger.Fatal("validators", zap.Error(err))
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(promRegistry)

	hierarchy := cfg.RBAC.Hierarchy
	gate := rbac.NewGate(hierarchy, rbac.NewRegistry())
	gate.SetObserver(appMetrics)

	// Audit trail
	jobQueue := queue.NewQueue(rdb.Client, logger)
	recorder := audit.NewRecorder(jobQueue, logger)
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)

	// Live feed
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, hierarchy.Bottom(), logger)

	// Users
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo, gate, logger)
	userSvc.SetAuditor(recorder)
	userHandler := users.NewHandler(userSvc)

	// Roles
	roleRepo := roles.NewRepository(pool)
	roleSvc := roles.NewService(roleRepo, hierarchy)
	roleSvc.SetAuditor(recorder)
	roleHandler := roles.NewHandler(roleSvc)

	// Permissions and access control
	permRepo := permissions.NewRepository(pool)
	permSvc := permissions.NewService(permRepo, roleRepo, userRepo, gate, logger)
	permSvc.SetAuditor(recorder)
	if err := permSvc.LoadRegistry(ctx); err != nil {
		logger.Fatal("load permission registry", zap.Error(err))
	}
	permHandler := permissions.NewHandler(permSvc)

	// Events
	eventRepo := events.NewRepository(pool)
	eventSvc := events.NewService(eventRepo, events.NewPolicy(gate), logger)
	eventSvc.SetNotifier(hub)
	eventSvc.SetAuditor(recorder)
	if cfg.AWS.ImagesBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ImagesBucket:    cfg.AWS.ImagesBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, event image uploads off", zap.Error(err))
		} else {
			eventSvc.SetImageStore(s3Client)
		}
	}
	eventHandler := events.NewHandler(eventSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(appMetrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "database unavailable"})
			return
		}
		if err := rdb.Healthy(hctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Error: "redis unavailable"})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler(promRegistry))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// WebSocket (token in query; view access checked before upgrade)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService, userRepo, eventSvc))

	need := func(c rbac.Capability) gin.HandlerFunc { return middleware.RequireCapability(gate, c) }

	api := router.Group("")
	api.Use(middleware.JWT(jwtService), middleware.LoadActor(userRepo))
	{
		api.GET("/me", userHandler.Me)
		api.GET("/me/can", userHandler.Can)

		// Events (per-event rules live in the event policy)
		api.GET("/events", need(rbac.ViewEvent), eventHandler.List)
		api.POST("/events", eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PUT("/events/:id", eventHandler.Update)
		api.DELETE("/events/:id", eventHandler.Delete)
		api.POST("/events/:id/restore", eventHandler.Restore)
		api.DELETE("/events/:id/force", eventHandler.ForceDelete)
		api.POST("/events/:id/organizers", eventHandler.AddOrganizer)
		api.DELETE("/events/:id/organizers/:userId", eventHandler.RemoveOrganizer)
		api.POST("/events/:id/image", eventHandler.UploadImage)

		// Users
		api.GET("/users", need(rbac.ViewUser), userHandler.List)
		api.GET("/users/:id", need(rbac.ViewUser), userHandler.GetByID)
		api.POST("/users", need(rbac.CreateUser), userHandler.Create)
		api.PUT("/users/:id", need(rbac.UpdateUser), userHandler.Update)
		api.DELETE("/users/:id", need(rbac.DeleteUser), userHandler.Delete)
		api.POST("/users/:id/permissions", need(rbac.AddUserPermission), permHandler.GrantToUser)
		api.DELETE("/users/:id/permissions/:permissionId", need(rbac.RemoveUserPermission), permHandler.RevokeFromUser)

		// Roles
		api.GET("/roles", need(rbac.ViewRole), roleHandler.List)
		api.GET("/roles/assignable/:name", userHandler.CanAssignRole)
		api.GET("/roles/:id", need(rbac.ViewRole), roleHandler.GetByID)
		api.POST("/roles", need(rbac.CreateRole), roleHandler.Create)
		api.PUT("/roles/:id", need(rbac.UpdateRole), roleHandler.Update)
		api.DELETE("/roles/:id", need(rbac.DeleteRole), roleHandler.Delete)
		api.POST("/roles/:id/permissions", need(rbac.AddRolePermission), permHandler.GrantToRole)
		api.DELETE("/roles/:id/permissions/:permissionId", need(rbac.RemoveRolePermission), permHandler.RevokeFromRole)

		// Permissions
		api.GET("/permissions", need(rbac.ViewPermission), permHandler.List)
		api.GET("/permissions/:id", need(rbac.ViewPermission), permHandler.GetByID)
		api.POST("/permissions", need(rbac.CreatePermission), permHandler.Create)
		api.PUT("/permissions/:id", need(rbac.UpdatePermission), permHandler.Update)
		api.DELETE("/permissions/:id", need(rbac.DeletePermission), permHandler.Delete)
		api.GET("/access-control", need(rbac.ViewAccessControl), permHandler.AccessControl)

		api.GET("/audit", need(rbac.ViewAudit), auditHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Audit.WorkerInline {
		processor := worker.NewAuditProcessor(auditRepo, jobQueue, logger)
		g.Go(func() error { return processor.Run(gctx) })
		logger.Info("audit worker started inline")
	}

	if err := g.Wait(); err != nil {
		logger.Error("server", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
