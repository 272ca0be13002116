// Package config loads service settings from .env files and the environment
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverCouchbase = "couchbase"
	DriverMongo     = "mongo"
	DriverMemory    = "memory"
)

// Config holds every setting read at startup
type Config struct {
	APIPort          string `mapstructure:"API_PORT"`
	LogLevel         string `mapstructure:"API_LOG_LEVEL"`
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`

	StoreDriver       string `mapstructure:"STORE_DRIVER"`
	CouchbaseURL      string `mapstructure:"COUCHBASE_URL"`
	CouchbaseUsername string `mapstructure:"COUCHBASE_USERNAME"`
	CouchbasePassword string `mapstructure:"COUCHBASE_PASSWORD"`
	CouchbaseBucket   string `mapstructure:"COUCHBASE_BUCKET"`
	CouchbaseScope    string `mapstructure:"COUCHBASE_SCOPE"`
	MongoURI          string `mapstructure:"MONGO_URI"`
	MongoDatabase     string `mapstructure:"MONGO_DATABASE"`

	StrictMode       bool   `mapstructure:"ADMIN_STRICT_MODE"`
	RecentWindowDays int    `mapstructure:"RECENT_WINDOW_DAYS"`
	JWTSecret        string `mapstructure:"ADMIN_JWT_SECRET"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	BusinessMetrics bool          `mapstructure:"ENABLE_BUSINESS_METRICS"`
	SystemMetrics   bool          `mapstructure:"ENABLE_SYSTEM_METRICS"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	SeedOnStart     bool          `mapstructure:"SEED_ON_START"`
}

var keys = []string{
	"API_PORT", "API_LOG_LEVEL", "ELASTICSEARCH_URL",
	"STORE_DRIVER", "COUCHBASE_URL", "COUCHBASE_USERNAME", "COUCHBASE_PASSWORD",
	"COUCHBASE_BUCKET", "COUCHBASE_SCOPE", "MONGO_URI", "MONGO_DATABASE",
	"ADMIN_STRICT_MODE", "RECENT_WINDOW_DAYS", "ADMIN_JWT_SECRET",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"ENABLE_BUSINESS_METRICS", "ENABLE_SYSTEM_METRICS", "SHUTDOWN_TIMEOUT", "SEED_ON_START",
}

// LoadDotEnv loads ../.env, falling back to ./.env. Missing files are fine.
func LoadDotEnv() {
	if err := godotenv.Load("../.env"); err != nil {
		log.Info().Msg("Not found .env file in parent directory, trying current directory")
		if err := godotenv.Load(".env"); err != nil {
			log.Info().Msg("Not found .env file in current directory, assuming environment variables are set")
		}
	}
}

// Load reads the configuration from the environment. Call LoadDotEnv first
// to pick up .env files.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_PORT", "8080")
	v.SetDefault("API_LOG_LEVEL", "info")
	v.SetDefault("ELASTICSEARCH_URL", "")
	v.SetDefault("STORE_DRIVER", DriverCouchbase)
	v.SetDefault("COUCHBASE_BUCKET", "medadmin")
	v.SetDefault("COUCHBASE_SCOPE", "_default")
	v.SetDefault("MONGO_DATABASE", "medadmin")
	v.SetDefault("ADMIN_STRICT_MODE", true)
	v.SetDefault("RECENT_WINDOW_DAYS", 5)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("ENABLE_BUSINESS_METRICS", false)
	v.SetDefault("ENABLE_SYSTEM_METRICS", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("SEED_ON_START", false)

	// Bind env vars explicitly so Unmarshal picks up keys without defaults
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverCouchbase:
		if c.CouchbaseURL == "" {
			return fmt.Errorf("COUCHBASE_URL is required when STORE_DRIVER=%s", DriverCouchbase)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER=%s", DriverMongo)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want couchbase, mongo or memory)", c.StoreDriver)
	}

	if c.RecentWindowDays <= 0 {
		return fmt.Errorf("RECENT_WINDOW_DAYS must be positive, got %d", c.RecentWindowDays)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

// SMTPEnabled reports whether approval and rejection emails are sent
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// AuthEnabled reports whether the admin routes require a signed token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
