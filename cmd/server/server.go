package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/devfolio/docs"
	"github.com/ZanzyTHEbar/devfolio/internal/adapters"
	"github.com/ZanzyTHEbar/devfolio/internal/cache"
	"github.com/ZanzyTHEbar/devfolio/internal/chat"
	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/dashboard"
	"github.com/ZanzyTHEbar/devfolio/internal/database"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/middleware"
	"github.com/ZanzyTHEbar/devfolio/internal/monitoring"
	"github.com/ZanzyTHEbar/devfolio/internal/privacy"
	"github.com/ZanzyTHEbar/devfolio/internal/projects"
	"github.com/ZanzyTHEbar/devfolio/internal/ratelimit"
	"github.com/ZanzyTHEbar/devfolio/internal/resilience"
	"github.com/ZanzyTHEbar/devfolio/internal/security"
)

// server owns every long-lived component behind the HTTP router
type server struct {
	cfg     *config.Config
	logger  *monitoring.Logger
	metrics *monitoring.Metrics

	client      *resilience.Client
	db          *database.DB
	projects    *cache.Cache
	hub         *chat.Hub
	privacy     *privacy.PrivacyService
	redis       *ratelimit.RedisStore
	limiter     *ratelimit.RateLimiter
	compression *middleware.CompressionMiddleware

	dashboard *dashboard.Handler
	catalog   *projects.Handler
	auth      *projects.Auth
	chat      *chat.Handler

	router *gin.Engine
}

// newServer wires the components described by cfg and builds the router
func newServer(cfg *config.Config, logger *monitoring.Logger) (*server, error) {
	s := &server{
		cfg:     cfg,
		logger:  logger,
		metrics: monitoring.NewMetrics(),
	}

	// Outbound provider calls
	clientConfig := resilience.DefaultClientConfig()
	if cfg.Upstream.Timeout > 0 {
		clientConfig.Timeout = cfg.Upstream.Timeout
	}
	clientConfig.Breaker.Enabled = cfg.Upstream.CircuitBreaker
	s.client = resilience.NewClient(clientConfig, logger, s.metrics)
	s.client.Register(adapters.Providers...)

	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.MaxAttempts = cfg.Upstream.MaxAttempts
	deps := adapters.Deps{
		Client:  resilience.WithRetry(s.client, retryConfig),
		Logger:  logger,
		Metrics: s.metrics,
	}

	s.dashboard = dashboard.New(
		adapters.NewGitHubAdapter(deps, cfg.GitHub),
		adapters.NewUmamiAdapter(deps, cfg.Umami),
		adapters.NewWakaTimeAdapter(deps, cfg.WakaTime),
		adapters.NewMonkeytypeAdapter(deps, cfg.Monkeytype),
	)

	// Persistence
	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db
	repo := database.NewRepository(db)

	// Rate limiting, Redis when configured and in-memory otherwise
	redisStore, err := ratelimit.OpenRedisStore(context.Background(), cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory rate limiting", "error", err)
	}
	s.redis = redisStore

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimitPerMin = cfg.RateLimitPerMin
	limiterConfig.WriteLimitPerMin = cfg.WriteLimitPerMin
	s.limiter = ratelimit.NewRateLimiter(redisStore, limiterConfig, s.metrics)

	// Projects catalog
	s.projects = cache.NewCache(cfg.ProjectsCacheTTL)
	s.auth = projects.NewAuth(cfg.Admin)
	if !s.auth.Enabled() {
		logger.Warn("Admin credentials not configured, catalog writes are disabled")
	}
	s.catalog = projects.NewHandler(
		projects.NewService(repo, s.projects, logger.Logger),
		s.auth,
		projects.WithReadCache(s.projects.Middleware(s.metrics)),
		projects.WithLoginLimit(s.limiter.WriteRateLimitMiddleware("login")),
	)

	// Chat room
	s.hub = chat.NewHub(cfg.AllowedOrigins, logger.Logger, s.metrics)
	s.chat = chat.NewHandler(
		chat.NewService(repo, s.hub, logger.Logger, s.metrics),
		s.hub,
		chat.WithWriteLimit(s.limiter.WriteRateLimitMiddleware("chat")),
		chat.WithAdmin(s.auth.RequireAdmin()),
	)

	s.privacy = privacy.NewService(repo, cfg.MessageRetention, logger.Logger)
	s.compression = middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())

	s.router = s.setupRouter()
	return s, nil
}

func (s *server) setupRouter() *gin.Engine {
	securityConfig := security.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.cfg.AllowedOrigins
	securityConfig.EnableHSTS = s.cfg.EnableHSTS
	securityConfig.DocsPrefix = "/swagger/"
	sec := security.NewSecurityMiddleware(securityConfig)

	r := gin.New()

	// Monitoring and error handling first so they observe everything below
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(sec.SecurityHeaders)
	r.Use(sec.CORS())
	r.Use(sec.RequestTimeout)
	r.Use(sec.LimitBody)
	r.Use(sec.ValidateContentType)
	r.Use(s.compression.Handler())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	api.Use(s.limiter.IPRateLimitMiddleware())

	s.dashboard.RegisterRoutes(api)
	s.catalog.RegisterRoutes(api)
	s.chat.RegisterRoutes(api)
	s.privacy.RegisterRoutes(api, s.auth.RequireAdmin())

	api.GET("/ratelimit", s.limiter.HandleRateLimitStatus())
	admin := api.Group("/admin", s.auth.RequireAdmin())
	admin.GET("/ratelimit", s.limiter.HandleAdminRateLimits())
	admin.DELETE("/ratelimit/:ip", s.limiter.HandleAdminInvalidateIP())

	r.NoRoute(func(c *gin.Context) {
		errors.Respond(c, errors.NewNotFoundError("route"))
	})

	return r
}

// handleHealth reports process liveness and per-provider health. A degraded
// provider does not fail the check; the dashboard endpoints absorb it.
func (s *server) handleHealth(c *gin.Context) {
	providers := s.client.Health()
	c.JSON(http.StatusOK, gin.H{
		"status":    resilience.Overall(providers),
		"timestamp": time.Now().Format(time.RFC3339),
		"providers": providers,
	})
}

func (s *server) handleMetrics(c *gin.Context) {
	stats := s.metrics.GetStats()
	stats["projects_cache"] = s.projects.Stats()
	stats["compression"] = s.compression.GetStats()
	stats["database"] = s.db.GetPoolStats()
	stats["rate_limiter"] = s.limiter.GetStats()
	stats["redis"] = s.redis.Stats()
	c.JSON(http.StatusOK, stats)
}

// close releases resources in reverse dependency order
func (s *server) close() {
	s.hub.Close()
	s.limiter.Close()
	if err := s.redis.Close(); err != nil {
		s.logger.Warn("Failed to close Redis client", "error", err)
	}
	s.projects.Close()
	s.client.Close()
	if err := s.db.Close(); err != nil {
		s.logger.Warn("Failed to close database", "error", err)
	}
}
