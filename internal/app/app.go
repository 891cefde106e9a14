// Package app wires configuration into stores and services shared by the HTTP
// gateway and the command line tool.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/incubatehub/compliance-api/internal/handler"
	"github.com/incubatehub/compliance-api/internal/repository"
	"github.com/incubatehub/compliance-api/internal/service"
	"github.com/incubatehub/compliance-api/pkg/cache"
	"github.com/incubatehub/compliance-api/pkg/config"
	"github.com/incubatehub/compliance-api/pkg/database"
	"github.com/incubatehub/compliance-api/pkg/jobs"
	"github.com/incubatehub/compliance-api/pkg/queue"
	"github.com/incubatehub/compliance-api/pkg/scheduler"
	"github.com/incubatehub/compliance-api/pkg/storage"
)

// Options toggles the optional subsystems a caller needs.
type Options struct {
	RunMigrations bool
	Reminders     bool
	Reports       bool
}

// Container holds the wired services and the connections they depend on.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	DB          *sqlx.DB
	MongoClient *mongo.Client
	Redis       *redis.Client
	Publisher   queue.Publisher

	Validator  *validator.Validate
	Metrics    *service.MetricsService
	Cache      *service.CacheService
	Auth       *service.AuthService
	Compliance *service.ComplianceService
	Reminders  *service.ReminderService
	Exports    *service.ExportService
	Reports    *service.ReportService
	ReportJobs *jobs.Queue
	Scheduler  *scheduler.Scheduler

	Checks map[string]handler.ReadinessCheck
}

// Build connects to the configured stores and constructs every service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Validator: validator.New(),
		Metrics:   service.NewMetricsService(),
		Checks:    map[string]handler.ReadinessCheck{},
	}
	c.Auth = service.NewAuthService(logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	if err := c.openStores(ctx, opts); err != nil {
		c.Close(context.Background())
		return nil, err
	}
	c.openCache(ctx)

	apps, participants := c.documentStores()
	c.Compliance = service.NewComplianceService(service.ComplianceServiceParams{
		Applications: apps,
		Participants: participants,
		Cache:        c.Cache,
		Metrics:      c.Metrics,
		Validator:    c.Validator,
		Logger:       logger,
		Config: service.ComplianceServiceConfig{
			ExpiringWindowDays: cfg.Compliance.ExpiringWindowDays,
			CacheTTL:           cfg.Compliance.CacheTTL,
			OptimisticLocking:  cfg.Compliance.OptimisticLocking,
		},
	})

	if opts.Reminders {
		if err := c.buildReminders(); err != nil {
			c.Close(context.Background())
			return nil, err
		}
	}
	if opts.Reports {
		if err := c.buildReports(ctx); err != nil {
			c.Close(context.Background())
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) openStores(ctx context.Context, opts Options) error {
	cfg := c.Config
	needPostgres := cfg.DocumentStore == config.StorePostgres || opts.Reports
	if needPostgres {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.DB = db
		c.Checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		if opts.RunMigrations {
			if err := database.RunMigrations(db, cfg.Database.MigrationsPath, c.Logger); err != nil {
				return err
			}
		}
	}
	if cfg.DocumentStore == config.StoreMongo {
		client, _, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		c.MongoClient = client
		c.Checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	}
	return nil
}

func (c *Container) openCache(ctx context.Context) {
	var repo *repository.CacheRepository
	if c.Config.Compliance.CacheEnabled {
		client, err := cache.NewRedis(ctx, c.Config.Redis)
		if err != nil {
			c.Logger.Warn("redis unavailable, overview cache disabled", zap.Error(err))
		} else {
			c.Redis = client
			repo = repository.NewCacheRepository(client, c.Logger)
			c.Checks["redis"] = repo.Ping
		}
	}
	if repo == nil {
		repo = repository.NewCacheRepository(nil, c.Logger)
	}
	c.Cache = service.NewCacheService(repo, c.Metrics, c.Config.Compliance.CacheTTL, c.Logger, c.Redis != nil)
}

func (c *Container) documentStores() (service.ApplicationStore, service.ParticipantStore) {
	if c.MongoClient != nil {
		db := c.MongoClient.Database(c.Config.Mongo.Database)
		return repository.NewMongoApplicationRepository(db), repository.NewMongoParticipantRepository(db)
	}
	return repository.NewApplicationRepository(c.DB), repository.NewParticipantRepository(c.DB)
}

func (c *Container) buildReminders() error {
	cfg := c.Config.Reminders
	publisher, err := queue.NewRabbitPublisher(cfg.RabbitMQURL, cfg.Queue)
	if err != nil {
		return err
	}
	c.Publisher = publisher
	c.Reminders = service.NewReminderService(c.Compliance, publisher, cfg.Queue, c.Metrics, c.Logger)
	return nil
}

// ScheduleReminders registers the periodic reminder sweep and starts the scheduler.
func (c *Container) ScheduleReminders() error {
	if c.Reminders == nil {
		return fmt.Errorf("reminders are not configured")
	}
	c.Scheduler = scheduler.New(c.Logger, 10*time.Minute)
	if err := c.Reminders.ScheduleSweep(c.Scheduler, c.Config.Reminders.Schedule, c.Config.Reminders.CompanyCodes); err != nil {
		return err
	}
	c.Scheduler.Start()
	return nil
}

func (c *Container) buildReports(ctx context.Context) error {
	cfg := c.Config
	var store storage.ObjectStore
	switch cfg.Reports.Storage {
	case config.ExportStorageMinio:
		minioStore, err := storage.NewMinioStorage(ctx, cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			return fmt.Errorf("init minio storage: %w", err)
		}
		store = minioStore
	default:
		local, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			return fmt.Errorf("init export storage: %w", err)
		}
		store = local
	}

	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	c.Exports = service.NewExportService(c.Compliance, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, c.Logger, service.ExportRenderers{})

	repo := repository.NewReportRepository(c.DB)
	worker := service.NewReportWorker(repo, c.Exports, c.Logger)
	var reports *service.ReportService
	c.ReportJobs = jobs.NewQueue("compliance-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     c.Logger,
		OnGiveUp: func(ctx context.Context, job jobs.Job, err error) {
			reports.MarkFailed(ctx, job, err)
		},
	})
	reports = service.NewReportService(repo, c.ReportJobs, c.Exports, c.Validator, c.Logger, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	c.Reports = reports
	return nil
}

// StartBackground launches the export workers and cleanup loop, replaying jobs left queued.
func (c *Container) StartBackground(ctx context.Context) {
	if c.ReportJobs != nil {
		c.ReportJobs.Start(ctx)
		c.Reports.RecoverPendingJobs(ctx)
		c.Reports.StartCleanup(ctx)
	}
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close(ctx context.Context) {
	if c.Scheduler != nil {
		c.Scheduler.Stop(ctx)
	}
	if c.ReportJobs != nil {
		c.ReportJobs.Stop()
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("failed to close publisher", zap.Error(err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil {
			c.Logger.Warn("failed to disconnect mongo", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("failed to close postgres", zap.Error(err))
		}
	}
}
