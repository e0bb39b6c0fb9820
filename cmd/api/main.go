package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"portfolioSaaS/internal/api"
	"portfolioSaaS/internal/auth"
	"portfolioSaaS/internal/billing"
	"portfolioSaaS/internal/config"
	"portfolioSaaS/internal/database"
	"portfolioSaaS/internal/portfolio"
	"portfolioSaaS/internal/ratelimit"
	"portfolioSaaS/internal/resume"
	"portfolioSaaS/internal/storage"
	"portfolioSaaS/internal/subscription"
	"portfolioSaaS/internal/tasks"
	"portfolioSaaS/internal/template"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("api bootstrapped",
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database migrated")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read jwt private key: %v", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read jwt public key: %v", err)
	}
	authService, err := auth.NewAuthService(privateKey, publicKey, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	ledger := subscription.NewLedger(db)
	templates := template.NewStatic()
	portfolios := portfolio.NewService(portfolio.NewGormStore(db), ledger, templates,
		portfolio.WithPreviewEnqueuer(tasks.NewEnqueuer(asynqClient)),
		portfolio.WithLogger(logger),
	)

	limiter, err := ratelimit.New(cfg.RateLimit, redisClient)
	if err != nil {
		log.Fatalf("init rate limiter: %v", err)
	}

	pipelineOpts := []resume.PipelineOption{resume.WithObjectStore(storageClient)}
	if cfg.Resume.ClamdAddr != "" {
		pipelineOpts = append(pipelineOpts, resume.WithScanner(resume.NewClamdScanner(cfg.Resume.ClamdAddr)))
	}
	pipeline := resume.NewPipeline(db, limiter, resume.NewParser(cfg.Resume, logger), resume.Limits{
		PerWindow: cfg.RateLimit.ResumeLimit,
		Window:    cfg.RateLimit.ResumeWindow,
		MaxBytes:  cfg.Resume.MaxUploadBytes,
	}, logger, pipelineOpts...)

	var provider billing.Provider = billing.Unavailable{}
	switch stripeProvider, err := billing.NewStripeProvider(cfg.Billing); {
	case err == nil:
		provider = stripeProvider
	case errors.Is(err, billing.ErrUnavailable):
		logger.Warn("stripe secret key missing, checkout disabled")
	default:
		log.Fatalf("init billing provider: %v", err)
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Dependencies{
		DB:          db,
		Redis:       redisClient,
		AuthService: authService,
		Ledger:      ledger,
		Portfolios:  portfolios,
		Resumes:     pipeline,
		Billing:     provider,
		Webhooks:    billing.NewWebhookProcessor(cfg.Billing.WebhookSecret, ledger, logger),
		Templates:   templates,
		Logger:      logger,
		AuthLimits: api.AuthLimits{
			LoginPerHour:  cfg.Auth.LoginRateLimitPerHour,
			LockThreshold: cfg.Auth.LoginLockThreshold,
			LockTTL:       cfg.Auth.LoginLockTTL,
		},
		CookieDomain:   cfg.Auth.CookieDomain,
		MaxUploadBytes: cfg.Resume.MaxUploadBytes,
		AllowedOrigins: cfg.API.Origins(),
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("addr", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
