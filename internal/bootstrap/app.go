package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/ai/gemini"
	"jobprep-backend/internal/ai/openai"
	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/extract"
	"jobprep-backend/internal/interviews"
	"jobprep-backend/internal/resumes"
	"jobprep-backend/internal/shared/config"
	"jobprep-backend/internal/shared/events"
	"jobprep-backend/internal/shared/server"
	"jobprep-backend/internal/shared/server/middleware"
	"jobprep-backend/internal/shared/storage/db"
	"jobprep-backend/internal/shared/storage/kv"
	"jobprep-backend/internal/shared/storage/object"
	localstore "jobprep-backend/internal/shared/storage/object/local"
	miniostore "jobprep-backend/internal/shared/storage/object/minio"
	s3store "jobprep-backend/internal/shared/storage/object/s3"
	"jobprep-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Redis   *redis.Client
	Store   object.ObjectStore
	Gateway ai.Gateway
	Events  events.Publisher

	ResumesRepo      resumes.Repo
	InterviewStore   interviews.Store
	ResumesService   *resumes.Service
	InterviewService *interviews.Service
	ResumeHandler    *resumes.Handler
	InterviewHandler *interviews.Handler
	Sweeper          *interviews.Sweeper

	closers []func() error
}

// Build prepares shared dependencies and registers routes. Optional backends
// (database, Redis, RabbitMQ) fall back to in-process implementations in
// dev-like environments when unset or unreachable.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB.Close)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	rdb, err := buildRedis(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	if rdb != nil {
		app.Redis = rdb
		app.closers = append(app.closers, rdb.Close)
	}

	publisher, err := buildEvents(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Events = publisher
	if closer, ok := publisher.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	gateway, err := buildGateway(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Gateway = gateway

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		ResumeHandler:    app.ResumeHandler,
		InterviewHandler: app.InterviewHandler,
		RateLimit:        rateLimitFor(cfg),
	})

	return app, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.db_memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			err = fmt.Errorf("run migrations: %w", err)
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil
	}
	opts := kv.DefaultOptions(cfg.RedisAddr)
	opts.Password = cfg.RedisPassword
	opts.DB = cfg.RedisDB
	client, err := kv.Open(ctx, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.redis_memory", map[string]any{"reason": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return client, nil
}

func buildEvents(cfg config.Config) (events.Publisher, error) {
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		return events.Noop{}, nil
	}
	publisher, err := events.DialAMQP(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.events_disabled", map[string]any{"reason": err.Error()})
			return events.Noop{}, nil
		}
		return nil, err
	}
	return publisher, nil
}

// buildGateway selects the model provider. A missing key is not fatal: every
// AI-backed operation has a fallback, so the service runs with ai.Disabled.
func buildGateway(ctx context.Context, cfg config.Config) (ai.Gateway, error) {
	var next ai.Gateway = ai.Disabled{}
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey != "" {
			client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, cfg.GeminiMaxRetries)
			if err != nil {
				return nil, err
			}
			next = client
		}
	case "openai":
		if cfg.OpenAIAPIKey != "" {
			client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
			if err != nil {
				return nil, err
			}
			next = client
		}
	}
	if _, disabled := next.(ai.Disabled); disabled {
		telemetry.Warn("bootstrap.ai_disabled", map[string]any{"provider": cfg.LLMProvider})
		return next, nil
	}
	return ai.NewGuard(next, cfg.LLMProvider, cfg.AITimeout), nil
}

func buildServices(app *App) {
	cfg := app.Config
	catalog := prompts.Default()

	if app.DB != nil {
		app.ResumesRepo = &resumes.PGRepo{DB: app.DB}
	} else {
		app.ResumesRepo = resumes.NewMemoryRepo()
	}

	resumeSvc := resumes.NewService(
		app.ResumesRepo,
		app.Store,
		resumes.NewParser(app.Gateway, extract.Extractor{}, catalog),
		resumes.NewScorer(app.Gateway, catalog),
		resumes.NewAdvisor(app.Gateway, catalog),
	)
	resumeSvc.Events = app.Events
	resumeSvc.MaxUploadBytes = cfg.UploadMaxBytes

	var store interviews.Store
	if app.Redis != nil {
		store = interviews.NewRedisStore(app.Redis, "", nil)
	} else {
		store = interviews.NewMemoryStore(nil)
	}
	interviewSvc := interviews.NewService(store, app.Gateway, catalog)
	interviewSvc.Events = app.Events
	interviewSvc.EnforceDeadline = cfg.InterviewEnforceDeadline

	app.InterviewStore = store
	app.ResumesService = resumeSvc
	app.InterviewService = interviewSvc
	app.ResumeHandler = resumes.NewHandler(resumeSvc)
	app.InterviewHandler = interviews.NewHandler(interviewSvc)
	app.Sweeper = &interviews.Sweeper{Store: store, Interval: cfg.InterviewSweepInterval}
}

func rateLimitFor(cfg config.Config) *middleware.RateLimitConfig {
	if cfg.Env == "test" {
		return nil
	}
	limit := server.DefaultRateLimit()
	return &limit
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
