// Package api wires together all HTTP routes for the swift-org backend.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are unauthenticated so load balancers and
//     orchestrators can probe the service without credentials.
//   - /api/v1/auth/login and /api/v1/auth/callback are unauthenticated (they
//     are how a session is obtained) but rate limited to blunt brute force
//     against the identity provider.
//   - Everything else under /api/v1/ requires a Bearer session token.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/mayukh2077/swift-org/internal/api/accounts"
	"github.com/mayukh2077/swift-org/internal/api/orgs"
	"github.com/mayukh2077/swift-org/internal/api/services"
	"github.com/mayukh2077/swift-org/internal/auth"
	"github.com/mayukh2077/swift-org/internal/config"
	"github.com/mayukh2077/swift-org/internal/db/repositories"
	"github.com/mayukh2077/swift-org/internal/jobs"
	"github.com/mayukh2077/swift-org/internal/middleware"
	"github.com/mayukh2077/swift-org/internal/safego"
)

// orphanSweepIntervalMinutes is how often the background sweeper looks for
// organizations left behind by failed signups.
const orphanSweepIntervalMinutes = 60

// BackgroundServices holds references to background jobs and resources that
// must be stopped during graceful shutdown. The caller (cmd/server) is
// responsible for calling Shutdown() when the process receives a termination
// signal.
type BackgroundServices struct {
	orphanSweeper *jobs.OrphanSweeper
	redisClient   *redis.Client
}

// Shutdown stops all background goroutines and closes shared clients. It
// should be called after the HTTP server has been shut down so that in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.orphanSweeper != nil {
		bg.orphanSweeper.Stop()
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()

	// Initialize repositories
	orgRepo := repositories.NewOrganizationRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	serviceRepo := repositories.NewServiceRepository(db)

	// Redis backs both session revocation and rate limiting. The service
	// stays up without it: revocation checks and rate limits fail open.
	var revoker auth.SessionRevoker
	var limiter *redis_rate.Limiter
	redisClient, err := auth.NewRedisClient(cfg.Redis.URL, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("redis unavailable: session revocation and rate limiting disabled", "error", err)
	} else {
		revoker = auth.NewRedisRevocationStore(redisClient)
		limiter = redis_rate.NewLimiter(redisClient)
	}

	// Start the orphan organization sweeper
	orphanSweeper := jobs.NewOrphanSweeper(orgRepo, orphanSweepIntervalMinutes)
	safego.Go(func() { orphanSweeper.Start(context.Background()) })

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes Redis probe)
	router.GET("/ready", readinessHandler(db, redisClient))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	authHandlers, err := accounts.NewAuthHandlers(cfg, profileRepo, revoker)
	if err != nil {
		return nil, nil, err
	}
	profileHandlers := accounts.NewProfileHandlers(profileRepo)
	orgHandlers := orgs.NewOrganizationHandlers(orgRepo, profileRepo)
	serviceHandlers := services.NewServiceHandlers(serviceRepo, profileRepo)

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, but rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(limiter, cfg.Security.RateLimiting))
		{
			authGroup.GET("/login", authHandlers.LoginHandler())
			authGroup.GET("/callback", authHandlers.CallbackHandler())
		}

		// Authenticated-only endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.AuthMiddleware(revoker, profileRepo))
		{
			authenticatedGroup.GET("/auth/me", authHandlers.MeHandler())
			authenticatedGroup.POST("/auth/signout", authHandlers.SignoutHandler())

			authenticatedGroup.GET("/profile", profileHandlers.GetProfileHandler())

			authenticatedGroup.POST("/organizations", orgHandlers.CreateOrganizationHandler())

			authenticatedGroup.GET("/services", serviceHandlers.ListServicesHandler())
			authenticatedGroup.POST("/services", serviceHandlers.CreateServiceHandler())
		}
	}

	bg := &BackgroundServices{
		orphanSweeper: orphanSweeper,
		redisClient:   redisClient,
	}

	return router, bg, nil
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and Redis connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks per dependency"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error naming the failed dependency"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks Redis so a readiness
// gate fails when sign-out and rate limiting would be degraded. Redis is
// reported but does not fail readiness: the API stays usable without it.
func readinessHandler(db *sqlx.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		checks["redis"] = "healthy"
		if redisClient == nil {
			checks["redis"] = "disabled"
		} else if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "unhealthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via the global slog
// handler configured in telemetry.SetupLogger.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID := c.GetString(middleware.RequestIDKey)

		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", requestID),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
