package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/institute-atri/blog-backend-sub000/internal/core/port"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/config"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/database"
	kafkainfra "github.com/institute-atri/blog-backend-sub000/internal/infra/kafka"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/logger"
	redisinfra "github.com/institute-atri/blog-backend-sub000/internal/infra/redis"
	"github.com/institute-atri/blog-backend-sub000/internal/infra/security"
	postgresrepo "github.com/institute-atri/blog-backend-sub000/internal/repository/postgres"
	redisrepo "github.com/institute-atri/blog-backend-sub000/internal/repository/redis"
	"github.com/institute-atri/blog-backend-sub000/internal/transport/http/middleware"
	"github.com/institute-atri/blog-backend-sub000/internal/transport/http/routes"
	"github.com/institute-atri/blog-backend-sub000/internal/usecase"
)

// Application wires the auth service together and owns its lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

// New builds the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewFileKeyProvider(cfg.JWT.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}

	codec, err := security.NewJWTCodec(keyProvider, cfg.JWT.KeyID, cfg.JWT.Issuer)
	if err != nil {
		return nil, fmt.Errorf("init jwt codec: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var kafkaProducer *kafkainfra.Producer
	var eventPublisher port.SecurityEventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			kafkaProducer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	ipBlocks := usecase.NewIPBlockService(repos.BlockedIPs, eventPublisher, log, cfg.Security.IPBlockThreshold)
	tokenService := usecase.NewTokenService(codec, repos.Tokens, repos.Users, ipBlocks, log, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)

	identityProvider := usecase.NewLocalIdentityProvider(repos.Users)
	loginService := usecase.NewLoginService(repos.Users, identityProvider, tokenService, eventPublisher, log, cfg.Security.LockoutThreshold, cfg.Security.LockoutDuration)

	registrationLimiter := usecase.NewRegistrationLimiter(cfg.Security.RegistrationLimit, cfg.Security.RegistrationWindow)
	passwordValidator := security.DefaultPasswordValidator(cfg.Security.PasswordMinLength, cfg.Security.PasswordMinStrength)
	registrationService := usecase.NewRegistrationService(repos.Users, registrationLimiter, passwordValidator, eventPublisher, log)

	rateLimitTTL := cfg.Redis.RateLimitTTL
	if rateLimitTTL <= 0 {
		rateLimitTTL = 2 * cfg.RateLimit.WindowDuration
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.RateLimitPrefix, rateLimitTTL)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Login:        loginService,
			Tokens:       tokenService,
			Registration: registrationService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting blog auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return nil
}
