package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/studentform/studentform/backend/go-services/internal/storage"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendBadger = "badger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Badger    BadgerConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Throttle  ThrottleConfig
	Query     QueryConfig
	MinIO     storage.MinIOConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	TrustedProxies  []string
	CORSAllowOrigin string
	Debug           bool
}

type StoreConfig struct {
	Backend string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

// Addr is host:port for the redis client.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type BadgerConfig struct {
	Path     string
	InMemory bool
}

type AdminConfig struct {
	Password     string
	PasswordHash string
	SessionTTL   time.Duration
}

type RateLimitConfig struct {
	SubmitMax    int
	SubmitWindow time.Duration
	LoginMax     int
	LoginWindow  time.Duration
	UseRedis     bool
}

// ThrottleConfig is the token-bucket throttle on read endpoints.
type ThrottleConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type QueryConfig struct {
	CacheTTL    time.Duration
	BatchSize   int
	AllowPublic bool
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("CORS_ALLOW_ORIGIN", "*")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("STORE_BACKEND", BackendMemory)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PREFIX", "studentform:")
	viper.SetDefault("MONGODB_DATABASE", "studentform")
	viper.SetDefault("MONGODB_COLLECTION", "kv")
	viper.SetDefault("MONGODB_TIMEOUT", "10s")
	viper.SetDefault("BADGER_PATH", "./data/badger")
	viper.SetDefault("BADGER_IN_MEMORY", false)
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("SUBMIT_RATE_MAX", 10)
	viper.SetDefault("SUBMIT_RATE_WINDOW", "15m")
	viper.SetDefault("LOGIN_RATE_MAX", 5)
	viper.SetDefault("LOGIN_RATE_WINDOW", "15m")
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("API_THROTTLE_ENABLED", false)
	viper.SetDefault("API_THROTTLE_RPS", 5)
	viper.SetDefault("API_THROTTLE_BURST", 20)
	viper.SetDefault("QUERY_CACHE_TTL", "30s")
	viper.SetDefault("QUERY_BATCH_SIZE", 20)
	viper.SetDefault("RESPONSES_ALLOW_PUBLIC", true)
	viper.SetDefault("MINIO_USE_SSL", false)
	viper.SetDefault("MINIO_BUCKET", "studentform-exports")

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			Host:            viper.GetString("SERVER_HOST"),
			Environment:     viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			TrustedProxies:  splitList(viper.GetString("TRUSTED_PROXIES")),
			CORSAllowOrigin: viper.GetString("CORS_ALLOW_ORIGIN"),
			Debug:           viper.GetBool("DEBUG"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(viper.GetString("STORE_BACKEND"))),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			Prefix:   viper.GetString("REDIS_PREFIX"),
		},
		MongoDB: MongoDBConfig{
			URI:        viper.GetString("MONGODB_URI"),
			Database:   viper.GetString("MONGODB_DATABASE"),
			Collection: viper.GetString("MONGODB_COLLECTION"),
			Timeout:    viper.GetDuration("MONGODB_TIMEOUT"),
		},
		Badger: BadgerConfig{
			Path:     viper.GetString("BADGER_PATH"),
			InMemory: viper.GetBool("BADGER_IN_MEMORY"),
		},
		Admin: AdminConfig{
			Password:     viper.GetString("ADMIN_PASSWORD"),
			PasswordHash: viper.GetString("ADMIN_PASSWORD_HASH"),
			SessionTTL:   viper.GetDuration("SESSION_TTL"),
		},
		RateLimit: RateLimitConfig{
			SubmitMax:    viper.GetInt("SUBMIT_RATE_MAX"),
			SubmitWindow: viper.GetDuration("SUBMIT_RATE_WINDOW"),
			LoginMax:     viper.GetInt("LOGIN_RATE_MAX"),
			LoginWindow:  viper.GetDuration("LOGIN_RATE_WINDOW"),
			UseRedis:     viper.GetBool("RATE_LIMIT_USE_REDIS"),
		},
		Throttle: ThrottleConfig{
			Enabled: viper.GetBool("API_THROTTLE_ENABLED"),
			RPS:     viper.GetFloat64("API_THROTTLE_RPS"),
			Burst:   viper.GetInt("API_THROTTLE_BURST"),
		},
		Query: QueryConfig{
			CacheTTL:    viper.GetDuration("QUERY_CACHE_TTL"),
			BatchSize:   viper.GetInt("QUERY_BATCH_SIZE"),
			AllowPublic: viper.GetBool("RESPONSES_ALLOW_PUBLIC"),
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Basic validation
	if cfg.Admin.Password == "" && cfg.Admin.PasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD is not set; admin login is disabled")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendBadger:
	case BackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_HOST")
		}
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("STORE_BACKEND=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.RateLimit.UseRedis && c.Redis.Host == "" {
		return fmt.Errorf("RATE_LIMIT_USE_REDIS requires REDIS_HOST")
	}
	if c.RateLimit.SubmitMax <= 0 || c.RateLimit.SubmitWindow <= 0 {
		return fmt.Errorf("SUBMIT_RATE_MAX and SUBMIT_RATE_WINDOW must be positive")
	}
	if c.RateLimit.LoginMax <= 0 || c.RateLimit.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_RATE_MAX and LOGIN_RATE_WINDOW must be positive")
	}
	if c.Admin.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Query.CacheTTL <= 0 || c.Query.BatchSize <= 0 {
		return fmt.Errorf("QUERY_CACHE_TTL and QUERY_BATCH_SIZE must be positive")
	}
	return nil
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
