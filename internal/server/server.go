package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pharmacy-ms/internal/catalog"
	"pharmacy-ms/internal/config"
	"pharmacy-ms/internal/database"
	"pharmacy-ms/internal/events"
	custommiddleware "pharmacy-ms/internal/middleware"
	"pharmacy-ms/internal/pos"
	"pharmacy-ms/internal/repository"
	"pharmacy-ms/internal/service"
	"pharmacy-ms/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env != "production"))
	router.Use(custommiddleware.RequestLogger(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Rate limiting backed by Redis; on Redis failure requests pass through
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	router.Use(custommiddleware.RateLimit(redisClient, custommiddleware.RateLimitConfig{
		Limit:     cfg.RateLimit.RequestsPerMinute,
		Window:    time.Minute,
		KeyPrefix: "ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(database.Health(db))
	})

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	// Initialize services and the POS core
	bus := events.NewBus()

	productCatalog := catalog.New(productRepo, logger)
	productCatalog.Subscribe(bus)

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := productCatalog.Refresh(startupCtx); err != nil {
		logger.Warn("Initial catalog refresh failed, POS starts with an empty snapshot", zap.Error(err))
	}

	settingsService := service.NewSettingsService(settingsRepo)
	if err := settingsService.Load(startupCtx); err != nil {
		logger.Warn("Loading settings failed, using defaults", zap.Error(err))
	}

	reportService := service.NewReportService(productRepo, saleRepo, settingsService)

	registry := pos.NewRegistry(func() *pos.Terminal {
		cart := pos.NewCart(productCatalog)
		checkout := pos.NewCheckout(productRepo, saleRepo, bus, logger)
		return pos.NewTerminal(cart, checkout)
	})

	// Initialize handlers
	posHandler := transport.NewPOSHandler(registry, settingsService, logger)
	productHandler := transport.NewProductHandler(productRepo, productCatalog, logger)
	reportHandler := transport.NewReportHandler(reportService, saleRepo, logger)
	settingsHandler := transport.NewSettingsHandler(settingsService, logger)
	purchaseHandler := transport.NewPurchaseHandler(supplierRepo, purchaseRepo, bus, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.Authenticate(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)
	staffMiddleware := custommiddleware.RequireAnyRole(logger, custommiddleware.RoleAdmin, custommiddleware.RolePharmacist)

	// Register routes
	posHandler.RegisterRoutes(router, authMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	reportHandler.RegisterRoutes(router, authMiddleware)
	settingsHandler.RegisterRoutes(router, authMiddleware, staffMiddleware)
	purchaseHandler.RegisterRoutes(router, authMiddleware, staffMiddleware)

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
			s.logger.Error("Failed to close redis client", zap.Error(err))
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
