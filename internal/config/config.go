package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"products-backend/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageDriverSQL  = "sql"
	StorageDriverGorm = "gorm"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Tracing   TracingConfig
	Schema    domain.ProductSchema
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	Schema          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type StorageConfig struct {
	Driver string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type TracingConfig struct {
	CollectorHost string
	ServiceName   string
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	query := url.Values{}
	query.Set("sslmode", d.SSLMode)
	query.Set("search_path", d.Schema)

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: query.Encode(),
	}
	return dsn.String()
}

// Addr returns the redis host:port pair
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	v.SetDefault("STORAGE_DRIVER", StorageDriverSQL)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("OTEL_SERVICE_NAME", "products-api")

	env := v.GetString("SERVER_ENV")
	logLevel := v.GetString("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
		if env == "development" {
			logLevel = "debug"
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("SERVER_PORT"),
			Env:      env,
			LogLevel: logLevel,
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_DATABASE"),
			Schema:          v.GetString("DB_SCHEMA"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute,
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Tracing: TracingConfig{
			CollectorHost: v.GetString("OTEL_COLLECTOR_HOST"),
			ServiceName:   v.GetString("OTEL_SERVICE_NAME"),
		},
		Schema: domain.DefaultProductSchema(),
	}

	if path := v.GetString("PRODUCT_SCHEMA_FILE"); path != "" {
		schema, err := LoadProductSchema(path)
		if err != nil {
			return nil, err
		}
		cfg.Schema = schema
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadProductSchema reads the product field definitions from a YAML or JSON file
func LoadProductSchema(path string) (domain.ProductSchema, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return domain.ProductSchema{}, fmt.Errorf("failed to read product schema %s: %w", path, err)
	}

	var schema domain.ProductSchema
	if err := v.Unmarshal(&schema); err != nil {
		return domain.ProductSchema{}, fmt.Errorf("failed to decode product schema %s: %w", path, err)
	}

	return schema, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverSQL, StorageDriverGorm:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
		}
	}

	if err := c.Schema.Validate(); err != nil {
		return fmt.Errorf("invalid product schema: %w", err)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
