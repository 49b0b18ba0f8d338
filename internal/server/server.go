package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"tienda-api/internal/config"
	"tienda-api/internal/database"
	"tienda-api/internal/exchange"
	custommiddleware "tienda-api/internal/middleware"
	"tienda-api/internal/repository"
	"tienda-api/internal/service"
	"tienda-api/internal/transport"

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
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, database.Health(db))
	})

	// Redis-backed rate limiting for the API surface
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger)

	// Exchange rate cache over the external rate source
	rateSource := exchange.NewDolarSiClient(
		cfg.Exchange.SourceURL,
		cfg.Exchange.QuoteName,
		cfg.Exchange.FetchTimeout,
	)
	rateCache := exchange.NewCache(rateSource, cfg.Exchange.RefreshInterval)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Initialize services
	productService := service.NewProductService(productRepo)
	orderService := service.NewOrderService(
		orderRepo,
		rateCache,
		service.InvalidQuantityPolicy(cfg.Orders.InvalidQuantityPolicy),
	)

	// Initialize handlers
	productHandler := transport.NewProductHandler(productService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	exchangeHandler := transport.NewExchangeHandler(rateCache, cfg.Exchange.QuoteName, logger)

	// Register routes behind the rate limiter
	router.Group(func(r chi.Router) {
		r.Use(rateLimit)
		productHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)
		exchangeHandler.RegisterRoutes(r)
	})

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

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
