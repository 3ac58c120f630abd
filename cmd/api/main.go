package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/123123123123Sitar/dpotdquicktest/internal/config"
	"github.com/123123123123Sitar/dpotdquicktest/internal/database"
	"github.com/123123123123Sitar/dpotdquicktest/internal/grading"
	"github.com/123123123123Sitar/dpotdquicktest/internal/handler"
	"github.com/123123123123Sitar/dpotdquicktest/internal/middleware"
	"github.com/123123123123Sitar/dpotdquicktest/internal/observability"
	"github.com/123123123123Sitar/dpotdquicktest/internal/repository"
	"github.com/123123123123Sitar/dpotdquicktest/internal/router"
	"github.com/123123123123Sitar/dpotdquicktest/internal/service"
	"github.com/123123123123Sitar/dpotdquicktest/pkg/ai"
)

const endpointCacheKey = "ai:endpoint:last_good"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled; grading locks and leaderboard caching are off")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	prompts, err := grading.NewPromptBuilder(grading.Persona(cfg.GradingPersona))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid grading persona")
	}

	completions, err := newCompletionClient(cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build model client")
	}

	if cfg.ProviderAPIKey() == "" {
		logger.Warn().Str("provider", cfg.AIProvider).Msg("model API key is not configured; grading requests will fail")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	questionRepo := repository.NewQuestionRepository(db)

	gradingService := service.NewGradingService(prompts, completions, service.StaticCredential(cfg.ProviderAPIKey()), logger)
	leaderboardService := service.NewLeaderboardService(submissionRepo, redisClient, cfg.LeaderboardCacheTTL, cfg.LeaderboardExcluded, logger)
	questionService := service.NewQuestionService(questionRepo, validate, logger)
	workflowService := service.NewSubmissionGradingService(service.SubmissionGradingConfig{
		Submissions: submissionRepo,
		Questions:   questionRepo,
		Grader:      gradingService,
		Events:      service.NewNATSGradingEvents(natsConn, cfg.EventsSubjectPrefix, logger),
		Leaderboard: leaderboardService,
		Redis:       redisClient,
		LockTTL:     cfg.GradingLockTTL,
		Validator:   validate,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		GradeHandler:             handler.NewGradeHandler(gradingService, logger),
		SubmissionGradingHandler: handler.NewSubmissionGradingHandler(workflowService, logger),
		LeaderboardHandler:       handler.NewLeaderboardHandler(leaderboardService, logger),
		QuestionHandler:          handler.NewQuestionHandler(questionService, logger),
		HealthProbes:             healthProbes(db, redisClient),
		MetricsHandler:           observability.MetricsHandler(),
		JWTMiddleware:            middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func newCompletionClient(cfg config.Config, redisClient *redis.Client, logger zerolog.Logger) (*ai.FallbackClient, error) {
	var (
		generator ai.Generator
		chain     []ai.Candidate
	)
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		generator = ai.NewOpenAIGenerator(ai.OpenAIConfig{BaseURL: cfg.OpenAIBaseURL})
		chain = ai.MirrorChain(cfg.AIOpenAIModels, ai.APIVersionV1)
	default:
		generator = ai.NewGeminiGenerator(ai.GeminiConfig{})
		chain = ai.DefaultGeminiChain()
	}

	var cache ai.EndpointCache
	switch cfg.AIEndpointCache {
	case config.EndpointCacheRedis:
		if redisClient != nil {
			cache = ai.NewRedisEndpointCache(redisClient, endpointCacheKey, cfg.AIEndpointCacheTTL)
			break
		}
		logger.Warn().Msg("redis endpoint cache requested without redis; using in-process cache")
		cache = ai.NewMemoryEndpointCache()
	case config.EndpointCacheMemory:
		cache = ai.NewMemoryEndpointCache()
	}

	return ai.NewFallbackClient(generator, ai.FallbackConfig{
		Chain:          chain,
		AttemptTimeout: cfg.AIAttemptTimeout,
		Cache:          cache,
		Logger:         logger,
	})
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return probes
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
