// Package server contains the HTTP handlers for the marketplace API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"inmomarket/internal/config"
	"inmomarket/internal/featureflags"
	"inmomarket/internal/middleware"
	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/service"
	"inmomarket/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          repository.Store
	images         storage.ImageStore
	featureFlags   *featureflags.Flags
	publications   *service.PublicationService
	favorites      *service.FavoriteService
	reports        *service.ReportService
	catalog        *service.CatalogService
	users          *service.UserService
}

// NewServerWithDeps creates a Server from dependencies established by the
// runtime bootstrap or by tests. A nil Redis client disables caching.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images storage.ImageStore) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database are required")
	}

	store := repository.NewStore(db)
	flags := featureflags.Parse(cfg.FeatureFlags)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inmomarket-api"),
		store:          store,
		images:         images,
		featureFlags:   flags,
		publications:   service.NewPublicationService(store, images, flags),
		favorites:      service.NewFavoriteService(store),
		reports:        service.NewReportService(store),
		catalog:        service.NewCatalogService(store),
		users:          service.NewUserService(store, images),
	}, nil
}

// NewApp builds the Fiber application with middleware and routes but does not listen.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "InmoMarket API",
		BodyLimit: s.bodyLimit(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) bodyLimit() int {
	perImage := s.config.ImageMaxUploadSizeMB
	if perImage <= 0 {
		perImage = storage.DefaultMaxUploadSizeMB
	}
	// every image at full size plus room for the JSON part
	return (perImage*maxImagesPerRequest + 1) * 1024 * 1024
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Cross-origin images are rendered by the frontend.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.TracingMiddleware())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.images.(*storage.LocalStore); ok && strings.HasPrefix(s.config.ImagePublicBaseURL, "/") {
		app.Static(s.config.ImagePublicBaseURL, local.Dir(), fiber.Static{MaxAge: 86400})
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "InmoMarket Metrics Dashboard",
	}))

	// Catalog
	api.Get("/property-types", s.GetPropertyTypes)
	api.Get("/locations", s.GetLocations)

	// Define specific /publications/:resource routes BEFORE generic /:id route
	publications := api.Group("/publications")
	publications.Get("/", s.GetPublications)
	publications.Get("/recent", s.GetRecentPublications)
	publications.Get("/popular", s.GetPopularPublications)
	publications.Get("/mine", s.AuthRequired(), s.GetMyPublications)
	publications.Get("/:id", s.GetPublication)
	publications.Post("/", s.AuthRequired(), s.CreatePublication)
	publications.Patch("/:id", s.AuthRequired(), s.UpdatePublication)

	users := api.Group("/users", s.AuthRequired())
	users.Get("/me", s.GetProfile)
	users.Patch("/me", s.UpdateProfile)
	users.Get("/:id/publications", s.GetUserPublications)

	favorites := api.Group("/favorites", s.AuthRequired())
	favorites.Get("/", s.GetFavorites)
	favorites.Get("/stats", s.GetFavoriteStats)
	favorites.Post("/:publicationId/toggle", s.ToggleFavorite)
	favorites.Get("/:publicationId/check", s.CheckFavorite)
	favorites.Delete("/:publicationId", s.RemoveFavorite)

	reports := api.Group("/reports", s.AuthRequired())
	reports.Post("/", s.reportRateLimit(), s.CreateReport)
	reports.Get("/mine", s.GetMyReports)
	reports.Get("/mine/feedback", s.GetMyReportFeedback)
	reports.Get("/mine/unread-count", s.GetUnreadFeedbackCount)
	reports.Post("/:id/read", s.MarkReportFeedbackRead)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/reports", s.GetAdminReports)
	admin.Post("/reports/:id/resolve", s.ResolveReport)
	admin.Get("/publications/:id/reports", s.GetPublicationReports)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// reportRateLimit throttles report submissions for users the report_rate_limit flag selects.
func (s *Server) reportRateLimit() fiber.Handler {
	limit := s.config.ReportRateLimit
	if limit <= 0 {
		limit = 10
	}
	limited := middleware.RateLimit(s.redis, limit, time.Hour, "create_report")
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.ReportRateLimit, currentIdentity(c).ID) {
			return c.Next()
		}
		return limited(c)
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Without Redis the API runs uncached, so it does not fail readiness.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
