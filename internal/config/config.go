// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// DefaultIdentityNamespace is the UUID namespace instrument IDs are derived under.
// Changing it changes every instrument ID.
const DefaultIdentityNamespace = "8c3e1f0a-5b7d-4f2e-9a61-3d4c2b1e0f97"

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for local state (always absolute)
	Port      int
	DevMode   bool
	LogLevel  string
	LogPretty bool
	LogFile   string

	IdentityNamespace string
	DividendTTL       time.Duration
	NotEligiblePolicy string // "stop" or "continue"
	CleanupSchedule   string // cron expression with seconds

	LookupCache  LookupCacheConfig
	ContentCache ContentCacheConfig
	Suppliers    *SuppliersConfig
}

// LookupCacheConfig selects the fast lookup cache backend.
type LookupCacheConfig struct {
	Backend     string // redis, sqlite or memory
	RedisURL    string
	RedisPrefix string
	Codec       string // json or msgpack
	SQLitePath  string
}

// ContentCacheConfig selects the durable content cache backend.
type ContentCacheConfig struct {
	Backend      string // fs or s3
	Dir          string
	PurgeHorizon string // next-month, next-day or a Go duration
	S3           S3Config
}

// S3Config holds object storage settings for the s3 content cache backend.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Load reads configuration from environment variables and the supplier file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	redisURL := getEnv("REDIS_URL", "")
	defaultLookupBackend := "sqlite"
	if redisURL != "" {
		defaultLookupBackend = "redis"
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("PORT", 8080),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("LOG_PRETTY", true),
		LogFile:           getEnv("LOG_FILE", ""),
		IdentityNamespace: getEnv("IDENTITY_NAMESPACE", DefaultIdentityNamespace),
		DividendTTL:       time.Duration(getEnvAsInt("DIVIDEND_TTL_SECONDS", 86400)) * time.Second,
		NotEligiblePolicy: getEnv("NOT_ELIGIBLE_POLICY", "stop"),
		CleanupSchedule:   getEnv("CLEANUP_SCHEDULE", "0 0 3 * * *"),
		LookupCache: LookupCacheConfig{
			Backend:     getEnv("LOOKUP_CACHE_BACKEND", defaultLookupBackend),
			RedisURL:    redisURL,
			RedisPrefix: getEnv("REDIS_PREFIX", ""),
			Codec:       getEnv("LOOKUP_CACHE_CODEC", "json"),
			SQLitePath:  getEnv("LOOKUP_CACHE_SQLITE_PATH", filepath.Join(absDataDir, "lookup_cache.db")),
		},
		ContentCache: ContentCacheConfig{
			Backend:      getEnv("CONTENT_CACHE_BACKEND", "fs"),
			Dir:          getEnv("CONTENT_CACHE_DIR", filepath.Join(absDataDir, "content-cache")),
			PurgeHorizon: getEnv("CONTENT_CACHE_PURGE_HORIZON", "next-month"),
			S3: S3Config{
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				Region:          getEnv("S3_REGION", "auto"),
				Bucket:          getEnv("S3_BUCKET", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				Prefix:          getEnv("S3_PREFIX", "content-cache/"),
			},
		},
	}

	suppliers, err := LoadSuppliers(getEnv("SUPPLIERS_CONFIG", ""))
	if err != nil {
		return nil, err
	}
	suppliers.applyEnvOverrides()
	cfg.Suppliers = suppliers

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if _, err := uuid.Parse(c.IdentityNamespace); err != nil {
		return fmt.Errorf("IDENTITY_NAMESPACE must be a UUID: %w", err)
	}
	if c.DividendTTL <= 0 {
		return fmt.Errorf("DIVIDEND_TTL_SECONDS must be positive")
	}
	switch c.NotEligiblePolicy {
	case "stop", "continue":
	default:
		return fmt.Errorf("NOT_ELIGIBLE_POLICY must be stop or continue, got %q", c.NotEligiblePolicy)
	}
	switch c.LookupCache.Backend {
	case "redis":
		if c.LookupCache.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis lookup cache")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("LOOKUP_CACHE_BACKEND must be redis, sqlite or memory, got %q", c.LookupCache.Backend)
	}
	switch c.LookupCache.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("LOOKUP_CACHE_CODEC must be json or msgpack, got %q", c.LookupCache.Codec)
	}
	switch c.ContentCache.Backend {
	case "fs":
	case "s3":
		s3 := c.ContentCache.S3
		if s3.Bucket == "" || s3.AccessKeyID == "" || s3.SecretAccessKey == "" {
			return fmt.Errorf("S3_BUCKET, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for the s3 content cache")
		}
	default:
		return fmt.Errorf("CONTENT_CACHE_BACKEND must be fs or s3, got %q", c.ContentCache.Backend)
	}
	if c.Suppliers == nil {
		return fmt.Errorf("supplier configuration missing")
	}
	return c.Suppliers.Validate()
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
