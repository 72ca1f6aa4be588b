package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/institute-atri/blog-backend-sub000/internal/infra/config"
	"github.com/institute-atri/blog-backend-sub000/internal/transport/http/handlers"
	"github.com/institute-atri/blog-backend-sub000/internal/transport/http/middleware"
	"github.com/institute-atri/blog-backend-sub000/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Login        *usecase.LoginService
	Tokens       *usecase.TokenService
	Registration *usecase.RegistrationService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	// Every request passes through the token filter. Requests without an
	// Authorization header continue anonymously; requests with one are fully
	// evaluated before any handler runs.
	r.Use(middleware.Authenticate(deps.Services.Tokens))

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		loginGuard, refreshGuard := credentialGuards(deps)
		authHandler := handlers.NewAuthHandler(deps.Services.Login, deps.Services.Tokens)
		authHandler.RegisterRoutes(authGroup, loginGuard, refreshGuard)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registrationHandler.RegisterRoutes(authGroup)
	}

	return r
}

// credentialGuards assembles the sliding-window throttles for the credential
// endpoints. Login and refresh carry separately configured limits.
func credentialGuards(deps Dependencies) (gin.HandlerFunc, gin.HandlerFunc) {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil, nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	var loginGuard, refreshGuard gin.HandlerFunc

	if limit := deps.Config.RateLimit.LoginMaxAttempts; limit > 0 {
		loginGuard = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:   "auth_login_ip",
			Limit:  limit,
			Window: window,
		})
	}

	if limit := deps.Config.RateLimit.RefreshMaxAttempts; limit > 0 {
		refreshGuard = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:   "auth_refresh_ip",
			Limit:  limit,
			Window: window,
		})
	}

	return loginGuard, refreshGuard
}
