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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/pbis-api/api/swagger"
	"github.com/noah-isme/pbis-api/internal/bootstrap"
	"github.com/noah-isme/pbis-api/internal/handler"
	"github.com/noah-isme/pbis-api/internal/middleware"
	"github.com/noah-isme/pbis-api/pkg/config"
	"github.com/noah-isme/pbis-api/pkg/jobs"
	"github.com/noah-isme/pbis-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/pbis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/pbis-api/pkg/middleware/requestid"
)

// @title PBIS Tier Support API
// @version 1.0.0
// @description Tier triage, CICO reconciliation and behavior analytics for school-wide PBIS teams
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("bootstrap failed", zap.Error(err))
	}
	defer app.Close()

	if cfg.Cache.WarmWorkers > 0 {
		warm := jobs.NewQueue("cache-warm", app.Dataset.Warm, jobs.QueueConfig{
			Workers:    cfg.Cache.WarmWorkers,
			MaxRetries: 2,
			Logger:     logr,
		})
		warm.Start(ctx)
		defer warm.Stop()
		app.Dataset.UseWarmQueue(warm)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.Metrics))
	r.Use(middleware.ResponseMeta())

	registerRoutes(r, cfg, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func registerRoutes(r *gin.Engine, cfg *config.Config, app *bootstrap.Container) {
	metrics := handler.NewMetricsHandler(app.Metrics, app.ReadinessChecks())
	r.GET("/health", metrics.Health)
	r.GET("/ready", metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metrics.Prometheus)
	}
	if cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	roster := handler.NewRosterHandler(app.Roster, app.Identifiers)
	triage := handler.NewTriageHandler(app.Triage)
	cico := handler.NewCICOHandler(app.CICO)
	analytics := handler.NewAnalyticsHandler(app.Analytics, app.Reports)
	exports := handler.NewExportHandler(app.Exports)
	plans := handler.NewInterventionHandler(app.Plans)

	api := r.Group(cfg.APIPrefix)
	api.GET("/system/metrics", metrics.Snapshot)

	api.GET("/tier/status", roster.Status)
	api.PUT("/tier/status/:code", roster.Update)
	api.GET("/tier/mapping", roster.Mapping)

	api.GET("/meeting/triage", triage.Meeting)
	api.GET("/tier3/review", triage.Tier3)
	api.GET("/cico/review", triage.CICO)

	api.GET("/cico/monthly", cico.Monthly)
	api.POST("/cico/monthly/generate", cico.Generate)
	api.POST("/cico/monthly/cells", cico.Cells)
	api.PUT("/cico/monthly/tier2", cico.Tier2Toggle)
	api.POST("/cico/daily", cico.Daily)
	api.GET("/cico/daily", cico.DailyRecords)
	api.PUT("/cico/settings", cico.Settings)
	api.GET("/cico/business-days", cico.BusinessDays)

	api.GET("/students/:code/bip", plans.Plan)
	api.PUT("/students/:code/bip", plans.SavePlan)
	api.POST("/meeting-notes", plans.SaveMeetingNote)
	api.GET("/meeting-notes", plans.MeetingNotes)
	api.GET("/meeting-notes/latest", plans.LatestMeetingNotes)

	api.GET("/analytics/dashboard", analytics.Dashboard)
	api.GET("/analytics/students/:code", analytics.Student)
	api.GET("/analytics/overview", analytics.Overview)

	api.GET("/exports/risk-list", exports.RiskList)
	api.GET("/exports/tier3", exports.Tier3)
	api.GET("/exports/cico", exports.CICO)
}
