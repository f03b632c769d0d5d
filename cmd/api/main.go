package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"products-backend/internal/config"
	"products-backend/internal/database"
	"products-backend/internal/logger"
	"products-backend/internal/middleware"
	"products-backend/internal/server"
	"products-backend/internal/tracing"
	"products-backend/migrations"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// runMigrateCommand handles -migrate=status|reset and exits without serving
func runMigrateCommand(ctx context.Context, command string, dbService database.Service, log *zap.Logger) error {
	switch command {
	case "status":
		return database.GetMigrationStatus(ctx, dbService.DB(), migrations.FS, log)
	case "reset":
		return database.ResetMigrations(ctx, dbService.DB(), migrations.FS, log)
	case "up":
		return database.RunMigrations(ctx, dbService.DB(), migrations.FS, log)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

func newRedisClient(cfg *config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// requests are let through while redis is unreachable
		log.Warn("Redis unreachable, rate limiting will fail open", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
	}

	return client
}

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, status, reset) and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	baseLog, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log := logger.Named(baseLog, cfg.Tracing.ServiceName)
	defer log.Sync()

	if err := middleware.CheckSchemaRules(cfg.Schema); err != nil {
		log.Fatal("Invalid product schema", zap.Error(err))
	}

	log.Info("Starting products API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Int("schema_fields", len(cfg.Schema.Fields)),
	)

	tracerProvider, err := tracing.InitTracing(cfg.Tracing)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	if tracerProvider != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(ctx); err != nil {
				log.Error("Failed to flush traces", zap.Error(err))
			}
		}()
		log.Info("Tracing enabled", zap.String("collector", cfg.Tracing.CollectorHost))
	}

	// Initialize database
	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx := context.Background()

	if *migrateCmd != "" {
		err := runMigrateCommand(ctx, *migrateCmd, dbService, log)
		dbService.Close()
		if err != nil {
			log.Fatal("Migration command failed", zap.String("command", *migrateCmd), zap.Error(err))
		}
		return
	}

	// Check database health
	log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

	// Run migrations
	if err := database.RunMigrations(ctx, dbService.DB(), migrations.FS, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	// Create server
	srv, err := server.NewServer(cfg, log, dbService, newRedisClient(cfg, log))
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
