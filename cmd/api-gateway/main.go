package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/incubatehub/compliance-api/api/swagger"
	"github.com/incubatehub/compliance-api/internal/app"
	"github.com/incubatehub/compliance-api/internal/handler"
	"github.com/incubatehub/compliance-api/internal/middleware"
	"github.com/incubatehub/compliance-api/pkg/config"
	"github.com/incubatehub/compliance-api/pkg/logger"
	corsmiddleware "github.com/incubatehub/compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/incubatehub/compliance-api/pkg/middleware/requestid"
)

// @title Incubation Compliance API
// @version 1.0.0
// @description Compliance status engine for incubation programme participants
// @BasePath /api/v1
// @schemes http https
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.Build(ctx, cfg, logr, app.Options{
		RunMigrations: true,
		Reminders:     cfg.Reminders.Enabled,
		Reports:       cfg.Reports.Enabled,
	})
	if err != nil {
		logr.Fatal("failed to initialise services", zap.Error(err))
	}

	if cfg.Reminders.Enabled && len(cfg.Reminders.CompanyCodes) > 0 {
		if err := container.ScheduleReminders(); err != nil {
			logr.Warn("reminder sweep not scheduled", zap.Error(err))
		}
	}
	container.StartBackground(ctx)

	r := newRouter(cfg, container, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.DocumentStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	container.Close(shutdownCtx)
	logr.Info("server exited")
}

func newRouter(cfg *config.Config, container *app.Container, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(container.Metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(container.Metrics, container.Checks, logr)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	complianceHandler := handler.NewComplianceHandler(container.Compliance, nil)
	if container.Reminders != nil {
		complianceHandler = handler.NewComplianceHandler(container.Compliance, container.Reminders)
	}

	api := r.Group(cfg.APIPrefix)
	secured := api.Group("", middleware.JWT(container.Auth), middleware.RequireRoles(middleware.ReadCompliance...))

	compliance := secured.Group("/compliance")
	compliance.GET("/overview", complianceHandler.Overview)
	compliance.GET("/stats", complianceHandler.Stats)
	compliance.GET("/participants/:id", complianceHandler.Participant)
	compliance.POST("/participants/:id/verify", middleware.RequireRoles(middleware.ReviewDocuments...), complianceHandler.Verify)
	compliance.GET("/reminders", complianceHandler.Reminders)
	compliance.POST("/reminders/dispatch", middleware.RequireRoles(middleware.Operate...), complianceHandler.DispatchReminders)

	secured.GET("/metrics/system", middleware.RequireRoles(middleware.Operate...), metricsHandler.System)

	if container.Reports != nil {
		reportHandler := handler.NewReportHandler(container.Reports, logr)
		compliance.POST("/exports", middleware.RequireRoles(middleware.ReviewDocuments...), reportHandler.GenerateReport)
		compliance.GET("/exports/:id", reportHandler.ReportStatus)
		api.GET("/export/:token", reportHandler.DownloadReport)
	}

	return r
}
