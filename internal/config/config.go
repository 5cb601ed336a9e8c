package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthLevelFunction  = "function"
	AuthLevelAnonymous = "anonymous"
)

type Config struct {
	// Server
	Port string
	Env  string // development, production

	// Database
	DatabaseURL string

	// Security
	AuthLevel      string
	MasterKey      string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64

	// Invocation log
	LogInvocations      bool
	InvocationRetention time.Duration
}

// Load reads configuration from flags in args, falling back to environment
// variables and a .env file if present.
func Load(args []string) (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	fs := flag.NewFlagSet("mailmerge", flag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	fs.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", "mailmerge.db"), "SQLite path or PostgreSQL connection string")
	fs.StringVar(&cfg.AuthLevel, "auth-level", getEnv("AUTH_LEVEL", AuthLevelFunction), "Authorization level for EmailSetup (function, anonymous)")

	cfg.MasterKey = getEnv("MASTER_KEY", "")
	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", 20)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 40)
	cfg.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", 1_048_576))
	cfg.LogInvocations = getEnv("LOG_INVOCATIONS", "true") == "true"
	cfg.InvocationRetention = getEnvDuration("INVOCATION_RETENTION", 30*24*time.Hour)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.AuthLevel != AuthLevelFunction && c.AuthLevel != AuthLevelAnonymous {
		return fmt.Errorf("AUTH_LEVEL must be %q or %q", AuthLevelFunction, AuthLevelAnonymous)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}

	if c.InvocationRetention < 0 {
		return fmt.Errorf("INVOCATION_RETENTION must not be negative")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Anonymous reports whether EmailSetup accepts calls without a function key.
func (c *Config) Anonymous() bool {
	return c.AuthLevel == AuthLevelAnonymous
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
