package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the hireflow server.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Events    EventsConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

// StoreConfig selects the persistence backend. "memory" keeps all state in
// process and is meant for local runs and demos.
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	PerMinute int
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

// EventsConfig configures the NATS publisher. An empty URL disables
// publishing.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	minProductionSecretLen = 32
)

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is applied first when present; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("HIREFLOW_PORT", 8080),
			Env:  envString("HIREFLOW_ENV", "development"),
		},
		Store: StoreConfig{
			Driver: envString("STORE_DRIVER", DriverPostgres),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectTimeout:  envDuration("DATABASE_CONNECT_TIMEOUT", 10*time.Second),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			JWTIssuer: envString("JWT_ISSUER", "hireflow"),
			TokenTTL:  envDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Events: EventsConfig{
			NATSURL:       os.Getenv("NATS_URL"),
			SubjectPrefix: envString("NATS_SUBJECT_PREFIX", "hireflow"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HIREFLOW_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, memory; got %q", c.Store.Driver)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimit.PerMinute)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.Env == "production" && len(c.Auth.JWTSecret) < minProductionSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen)
	}
	if c.Auth.JWTIssuer == "" {
		return fmt.Errorf("JWT_ISSUER must not be empty")
	}

	if c.Events.NATSURL != "" &&
		!strings.HasPrefix(c.Events.NATSURL, "nats://") && !strings.HasPrefix(c.Events.NATSURL, "tls://") {
		return fmt.Errorf("NATS_URL must start with nats:// or tls://, got %q", c.Events.NATSURL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
