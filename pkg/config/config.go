// Package config loads application configuration from the environment,
// optionally overlaid with a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  store.Config    `yaml:"database"`
	Storage   storage.Config  `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Purge     PurgeConfig     `yaml:"purge"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	// ImpersonationSecret signs short-lived impersonation tokens
	ImpersonationSecret string        `yaml:"impersonation_secret"`
	ImpersonationTTL    time.Duration `yaml:"impersonation_ttl"`
}

// RateLimitConfig holds per-path-class request budgets per minute
type RateLimitConfig struct {
	// RedisURL enables the distributed limiter when set
	RedisURL string `yaml:"redis_url"`
	Auth     int    `yaml:"auth"`
	Admin    int    `yaml:"admin"`
	Default  int    `yaml:"default"`
}

// PurgeConfig controls the soft-delete purge job
type PurgeConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Schedule  string        `yaml:"schedule"`
	Retention time.Duration `yaml:"retention"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("MAKERSITE_HOST", "0.0.0.0"),
			Port:            getEnv("MAKERSITE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("MAKERSITE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("MAKERSITE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("MAKERSITE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("MAKERSITE_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxUploadBytes:  getEnvInt64("MAKERSITE_MAX_UPLOAD_BYTES", 10<<20),
		},
		Database: store.Config{
			Driver:   getEnv("MAKERSITE_DB_DRIVER", "postgres"),
			URL:      getEnv("MAKERSITE_DB_URL", ""),
			MaxConns: getEnvInt("MAKERSITE_DB_MAX_CONNS", 20),
			MinConns: getEnvInt("MAKERSITE_DB_MIN_CONNS", 2),
			Timeout:  getEnvDuration("MAKERSITE_DB_TIMEOUT", 10*time.Second),
		},
		Storage: storage.Config{
			Type:           getEnv("MAKERSITE_STORAGE_TYPE", "filesystem"),
			Root:           getEnv("MAKERSITE_STORAGE_ROOT", "/var/lib/makersite/uploads"),
			BaseURL:        getEnv("MAKERSITE_STORAGE_BASE_URL", "/storage"),
			S3Endpoint:     getEnv("MAKERSITE_S3_ENDPOINT", ""),
			S3Region:       getEnv("MAKERSITE_S3_REGION", ""),
			S3Bucket:       getEnv("MAKERSITE_S3_BUCKET", ""),
			S3AccessKey:    getEnv("MAKERSITE_S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("MAKERSITE_S3_SECRET_KEY", ""),
			S3UsePathStyle: getEnvBool("MAKERSITE_S3_PATH_STYLE", false),
		},
		Auth: AuthConfig{
			ImpersonationSecret: getEnv("MAKERSITE_IMPERSONATION_SECRET", ""),
			ImpersonationTTL:    getEnvDuration("MAKERSITE_IMPERSONATION_TTL", 15*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RedisURL: getEnv("MAKERSITE_REDIS_URL", ""),
			Auth:     getEnvInt("MAKERSITE_RATELIMIT_AUTH", 5),
			Admin:    getEnvInt("MAKERSITE_RATELIMIT_ADMIN", 200),
			Default:  getEnvInt("MAKERSITE_RATELIMIT_DEFAULT", 100),
		},
		Purge: PurgeConfig{
			Enabled:   getEnvBool("MAKERSITE_PURGE_ENABLED", true),
			Schedule:  getEnv("MAKERSITE_PURGE_SCHEDULE", "0 3 * * *"),
			Retention: getEnvDuration("MAKERSITE_PURGE_RETENTION", 30*24*time.Hour),
		},
		LogLevel: getEnv("MAKERSITE_LOG_LEVEL", "info"),
	}

	if path := getEnv("MAKERSITE_CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// mergeFile overlays values from a YAML config file
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks for inconsistent configuration
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite3" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Storage.Type != "filesystem" && c.Storage.Type != "s3" {
		return fmt.Errorf("unsupported storage type %q", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("s3 storage requires a bucket")
	}
	if c.RateLimit.Default <= 0 {
		return fmt.Errorf("default rate limit must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
