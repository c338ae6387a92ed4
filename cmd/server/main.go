package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/cache"
	"github.com/morchidhub/guide-backend/internal/config"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/handlers"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/morchidhub/guide-backend/internal/storage"
	"github.com/morchidhub/guide-backend/pkg/jwt"
	"github.com/morchidhub/guide-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting guide marketplace backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := validator.RegisterGinValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	redisClient := cache.ConnectRedis(cfg.Redis)
	searchCache := cache.NewSearchCache(redisClient, cfg.Redis.SearchCacheTTL)
	if searchCache.Enabled() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := searchCache.Ping(pingCtx); err != nil {
			logger.WithError(err).Warn("Redis unreachable, search results will not be cached")
		} else {
			logger.WithField("addr", cfg.Redis.Addr).Info("Search cache enabled")
		}
		cancel()
		defer redisClient.Close()
	}

	documents, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatalf("Failed to initialize document storage: %v", err)
	}

	// Repositories
	userRepository := database.NewUserRepository(db)
	refreshTokenRepository := database.NewRefreshTokenRepository(db)
	guideRepository := database.NewGuideRepository(db)
	reviewRepository := database.NewReviewRepository(db)
	routeRepository := database.NewRouteRepository(db)
	searchRepository := database.NewSearchRepository(db)
	supportRepository := database.NewSupportRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	rateLimitService := services.NewRateLimitService(db, cfg.RateLimit)
	auditService := services.NewAuditService(db)

	authService := services.NewAuthService(
		userRepository,
		refreshTokenRepository,
		rateLimitService,
		jwtService,
		cfg.Security.BcryptCost,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
		logger,
	)
	profileService := services.NewProfileService(userRepository, guideRepository, searchCache, logger)
	verificationService := services.NewVerificationService(
		guideRepository,
		documents,
		searchCache,
		cfg.Verification,
		cfg.Storage.MaxUploadBytes,
		logger,
	)
	reviewService := services.NewReviewService(reviewRepository, guideRepository, routeRepository, userRepository, searchCache, logger)
	routeService := services.NewRouteService(routeRepository, guideRepository, searchCache, cfg.Routes.ProximityMeters, logger)
	searchService := services.NewSearchService(searchRepository, searchCache, logger)
	supportService := services.NewSupportService(supportRepository, logger)
	adminService := services.NewAdminService(userRepository, auditService, searchCache, logger)

	maintenanceService := services.NewMaintenanceService(refreshTokenRepository, rateLimitService, auditService, logger)
	if err := maintenanceService.Start(); err != nil {
		logger.Fatalf("Failed to start maintenance jobs: %v", err)
	}

	// Audit entries are skipped entirely when disabled
	handlerAudit := auditService
	if !cfg.Security.EnableAuditLog {
		handlerAudit = nil
		logger.Warn("Audit logging disabled")
	}

	h := handlers.Handlers{
		Auth:    handlers.NewAuthHandler(authService, profileService, handlerAudit, logger),
		Guide:   handlers.NewGuideHandler(verificationService, profileService, handlerAudit, cfg.Storage.MaxUploadBytes, logger),
		Route:   handlers.NewRouteHandler(routeService, logger),
		Review:  handlers.NewReviewHandler(reviewService, handlerAudit, logger),
		Search:  handlers.NewSearchHandler(searchService, logger),
		Support: handlers.NewSupportHandler(supportService, logger),
		Admin:   handlers.NewAdminHandler(adminService, verificationService, profileService, supportService, handlerAudit, logger),
	}

	router := gin.New()
	router.MaxMultipartMemory = 4 * cfg.Storage.MaxUploadBytes

	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db, searchCache))
	router.Static("/uploads", documents.BasePath())

	handlers.RegisterRoutes(router.Group("/api/v1"), h, jwtService, userRepository, guideRepository)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	maintenanceService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
			fields["roles"] = userCtx.Roles
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler reports database and cache status
func healthCheckHandler(db database.DB, searchCache *cache.SearchCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		cacheStatus := "disabled"
		if searchCache.Enabled() {
			cacheStatus = "healthy"
			if err := searchCache.Ping(ctx); err != nil {
				cacheStatus = "unhealthy"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"cache":     cacheStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
