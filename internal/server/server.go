package server

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize repositories
	sqlDB := db.DB()
	txManager := repository.NewTxManager(sqlDB)
	userRepo := repository.NewUserRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	cartRepo := repository.NewCartRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)

	// Initialize services
	userService := service.NewUserService(userRepo, sessionRepo, cfg.Session.Secret, cfg.Session.TTL())
	catalogService := service.NewCatalogService(productRepo, categoryRepo, txManager)
	cartService := service.NewCartService(cartRepo, productRepo, m)
	orderService := service.NewOrderService(txManager, cartRepo, productRepo, orderRepo, m, logger)

	sessionCookie := custommiddleware.SessionCookie{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		TTL:    cfg.Session.TTL(),
	}

	// Create router
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.LoadPrincipal(userService, sessionCookie, logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware(m))

	router.NotFound(custommiddleware.NotFoundHandler)
	router.MethodNotAllowed(custommiddleware.MethodNotAllowedHandler)

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, stats)
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	requireUser := custommiddleware.RequireAuthenticated(logger)
	requireAdmin := custommiddleware.RequireRole(domain.RoleAdmin, logger)
	rateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window(),
		KeyPrefix:         "ratelimit:auth",
	}, logger)

	// Register routes
	transport.NewAuthHandler(userService, sessionCookie, logger).
		RegisterRoutes(router, custommiddleware.RedirectIfAuthenticated(), requireUser, rateLimit)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, requireUser)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, requireUser)
	transport.NewAdminHandler(catalogService, logger).RegisterRoutes(router, requireAdmin)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
