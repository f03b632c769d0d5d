package server

import (
	"fmt"
	"net/http"
	"time"

	"products-backend/internal/config"
	"products-backend/internal/database"
	custommiddleware "products-backend/internal/middleware"
	"products-backend/internal/repository"
	"products-backend/internal/service"
	"products-backend/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires the product stack onto a chi router. redisClient may be
// nil, in which case rate limiting is skipped.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) (*Server, error) {
	productRepo, err := newProductRepository(cfg.Storage.Driver, db)
	if err != nil {
		return nil, err
	}

	productService := service.NewProductService(productRepo, logger.Named("product_service"))
	productHandler := transport.NewProductHandler(productService, cfg.Schema, logger.Named("product_handler"))

	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))

	if cfg.RateLimit.Enabled && redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate_limit",
		}, logger))
	}

	router.Get("/health", healthHandler(db))

	productHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      otelhttp.NewHandler(router, cfg.Tracing.ServiceName),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func newProductRepository(driver string, db database.Service) (repository.ProductRepository, error) {
	switch driver {
	case config.StorageDriverGorm:
		gormDB, err := repository.OpenGorm(db.DB())
		if err != nil {
			return nil, err
		}
		return repository.NewGormProductRepository(gormDB), nil
	case config.StorageDriverSQL, "":
		return repository.NewProductRepository(db.DB()), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func healthHandler(db database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := db.Health(r.Context())
		if stats["status"] != "up" {
			custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "unavailable",
				"database": stats,
			})
			return
		}

		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"database": stats,
		})
	}
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
