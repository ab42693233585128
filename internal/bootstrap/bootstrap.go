package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/handler"
	"github.com/noah-isme/pbis-api/internal/repository"
	"github.com/noah-isme/pbis-api/internal/service"
	"github.com/noah-isme/pbis-api/pkg/cache"
	"github.com/noah-isme/pbis-api/pkg/config"
	"github.com/noah-isme/pbis-api/pkg/database"
	"github.com/noah-isme/pbis-api/pkg/sheets"
)

// Container holds the wired stores and services shared by the API server and the CLI.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Metrics     *service.MetricsService
	Cache       *service.CacheService
	Dataset     *service.DatasetService
	Engine      *service.TierEngine
	Identifiers *service.IdentifierService
	Roster      *service.RosterService
	CICO        *service.CICOService
	Plans       *service.InterventionService
	Triage      *service.TriageService
	Analytics   *service.AnalyticsService
	Reports     *service.ReportService
	Exports     *service.ExportService
}

// New connects the configured backends and wires every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}

	rules := service.DefaultTierRules()
	if cfg.Rules.File != "" {
		loaded, err := service.LoadTierRules(cfg.Rules.File)
		if err != nil {
			return nil, fmt.Errorf("load tier rules: %w", err)
		}
		rules = loaded
		logger.Info("tier rules loaded", zap.String("file", cfg.Rules.File))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.DB = db

	if cfg.Metrics.Enabled {
		c.Metrics = service.NewMetricsService()
	}

	var cacheRepo service.CacheRepository
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.Redis = client
		cacheRepo = repository.NewCacheRepository(client, logger)
	default:
		cacheRepo = repository.NewMemoryCacheRepository(nil)
	}
	c.Cache = service.NewCacheService(cacheRepo, c.Metrics, cfg.Cache.DefaultTTL, cfg.Cache.Prefix, logger, true)

	var incidents service.IncidentSource = repository.NewIncidentRepository(db)
	if cfg.IncidentSource == config.IncidentSourceSheets {
		sheetsSvc, err := sheets.NewService(ctx, cfg.Sheets)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect sheets: %w", err)
		}
		incidents = repository.NewSheetsIncidentSource(sheetsSvc, cfg.Sheets.SpreadsheetID, cfg.Sheets.IncidentRange)
	}

	students := repository.NewStudentRepository(db)
	cico := repository.NewCICORepository(db)
	c.Dataset = service.NewDatasetService(students, incidents, cico, repository.NewHolidayRepository(db), c.Cache, c.Metrics,
		service.DatasetTTLs{
			Roster:    cfg.Cache.RosterTTL,
			Incidents: cfg.Cache.IncidentsTTL,
			CICO:      cfg.Cache.CICOTTL,
			Holidays:  cfg.Cache.HolidaysTTL,
		}, logger)

	validate := validator.New()
	c.Engine = service.NewTierEngine(rules)
	c.Identifiers = service.NewIdentifierService(c.Dataset, logger)
	c.Roster = service.NewRosterService(students, c.Dataset, validate, logger)
	c.CICO = service.NewCICOService(cico, c.Dataset, c.Metrics, validate, logger)
	c.Plans = service.NewInterventionService(repository.NewInterventionRepository(db), c.Dataset, c.Cache, c.Metrics, validate, 0, logger)
	c.Triage = service.NewTriageService(c.Dataset, c.Engine, c.Metrics, logger)
	c.Analytics = service.NewAnalyticsService(c.Dataset, service.NewReportBuilder(c.Engine), c.Metrics, logger)
	c.Reports = service.NewReportService(c.Analytics, c.Triage, logger)
	c.Exports = service.NewExportService(c.Analytics, c.Triage, c.CICO, logger)
	return c, nil
}

// ReadinessChecks pings the database and, when configured, redis.
func (c *Container) ReadinessChecks() map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return c.DB.PingContext(ctx) },
	}
	if c.Redis != nil {
		checks["cache"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases the backend connections.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
