package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string `env:"SERVER_PORT, default=8080"`
	Env         string `env:"ENV, default=development"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
	SwaggerHost string `env:"SWAGGER_HOST"`
	ResetDB     bool   `env:"RESET_DB, default=false"`

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	CORS     CORSConfig
}

// DatabaseConfig selects the relational store and sizes its connection pool.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER, default=sqlite"`
	URL             string        `env:"DATABASE_URL, default=notes.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS, default=10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type AuthConfig struct {
	JWTSecret          string `env:"JWT_SECRET, default=change-me"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES, default=30"`
}

type CORSConfig struct {
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS, default=*"`
	AllowCredentials bool     `env:"ALLOW_CREDENTIALS, default=false"`
}

// AccessTokenTTL is the configured lifetime of issued access tokens.
func (c AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads an optional .env file and then builds Config from the environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Auth.AccessTokenMinutes <= 0 {
		return errors.New("config: ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if !c.IsDevelopment() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "change-me") {
		return errors.New("config: JWT_SECRET must be set outside development")
	}
	return nil
}
