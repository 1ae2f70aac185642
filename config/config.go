package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Auth       AuthConfig       `koanf:"auth"`
	Media      MediaConfig      `koanf:"media"`
	Pagination PaginationConfig `koanf:"pagination"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig selects and configures the relational store
type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite"
	Driver       string `koanf:"driver"`
	Host         string `koanf:"host"`
	Port         string `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	SSLMode      string `koanf:"ssl_mode"`
	SQLitePath   string `koanf:"sqlite_path"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RedisConfig configures the optional redis connection. An empty Host and
// URL disables redis.
type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	URL      string `koanf:"url"`
}

// Enabled reports whether redis has been configured
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Host != ""
}

// AuthConfig configures token issuance
type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// MediaConfig configures where uploaded recipe images are kept
type MediaConfig struct {
	// Backend is one of "local", "s3" or "minio"
	Backend   string `koanf:"backend"`
	Root      string `koanf:"root"`
	BaseURL   string `koanf:"base_url"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// PaginationConfig controls list endpoints
type PaginationConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// RateLimitConfig controls the redis backed recipe creation limiter
type RateLimitConfig struct {
	RecipeCreatePerHour int `koanf:"recipe_create_per_hour"`
}

// LogConfig configures the zerolog logger
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ConfigPathEnvVar points at an optional YAML configuration file
const ConfigPathEnvVar = "CONFIG_FILE"

// Default returns the configuration used before any file, environment or
// secret is applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ShutdownTimeout: 5 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         "5432",
			User:         "foodgram",
			Name:         "foodgram",
			SSLMode:      "disable",
			SQLitePath:   "foodgram.db",
			MaxOpenConns: 25,
			MaxIdleConns: 25,
		},
		Redis: RedisConfig{},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Media: MediaConfig{
			Backend: "local",
			Root:    "media",
			BaseURL: "/media/",
			Bucket:  "foodgram-media",
		},
		Pagination: PaginationConfig{
			DefaultPageSize: 6,
			MaxPageSize:     100,
		},
		RateLimit: RateLimitConfig{
			RecipeCreatePerHour: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig layers defaults, an optional YAML file, environment variables
// and docker secrets, then validates the result for the current environment.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if origins, ok := k.Get("server.cors_origins").(string); ok {
		if err := k.Set("server.cors_origins", splitList(origins)); err != nil {
			return nil, fmt.Errorf("failed to set cors origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Outside CI sensitive values come from docker secrets when present
	if GetEnvironment() != CI {
		applySecrets(cfg)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envKeys maps the environment variables understood by the service onto
// koanf paths. Unknown variables are ignored.
var envKeys = map[string]string{
	"SERVER_HOST":             "server.host",
	"SERVER_PORT":             "server.port",
	"SHUTDOWN_TIMEOUT":        "server.shutdown_timeout",
	"CORS_ORIGINS":            "server.cors_origins",
	"DB_DRIVER":               "database.driver",
	"DB_HOST":                 "database.host",
	"DB_PORT":                 "database.port",
	"DB_USER":                 "database.user",
	"DB_PASSWORD":             "database.password",
	"DB_NAME":                 "database.name",
	"DB_SSL_MODE":             "database.ssl_mode",
	"SQLITE_PATH":             "database.sqlite_path",
	"REDIS_HOST":              "redis.host",
	"REDIS_PORT":              "redis.port",
	"REDIS_PASSWORD":          "redis.password",
	"REDIS_URL":               "redis.url",
	"JWT_SECRET":              "auth.jwt_secret",
	"TOKEN_TTL":               "auth.token_ttl",
	"MEDIA_BACKEND":           "media.backend",
	"MEDIA_ROOT":              "media.root",
	"MEDIA_URL":               "media.base_url",
	"S3_BUCKET_NAME":          "media.bucket",
	"AWS_REGION":              "media.region",
	"MINIO_ENDPOINT":          "media.endpoint",
	"MINIO_ACCESS_KEY":        "media.access_key",
	"MINIO_SECRET_KEY":        "media.secret_key",
	"MINIO_USE_SSL":           "media.use_ssl",
	"PAGE_SIZE":               "pagination.default_page_size",
	"RECIPE_CREATE_PER_HOUR":  "rate_limit.recipe_create_per_hour",
	"LOG_LEVEL":               "log.level",
	"LOG_FORMAT":              "log.format",
}

func envKey(key string) string {
	return envKeys[key]
}

// secretKeys are read from the secrets directory and override whatever the
// environment supplied.
var secretKeys = map[string]func(*Config, string){
	"db_user":          func(c *Config, v string) { c.Database.User = v },
	"db_password":      func(c *Config, v string) { c.Database.Password = v },
	"jwt_secret":       func(c *Config, v string) { c.Auth.JWTSecret = v },
	"redis_password":   func(c *Config, v string) { c.Redis.Password = v },
	"redis_url":        func(c *Config, v string) { c.Redis.URL = v },
	"minio_access_key": func(c *Config, v string) { c.Media.AccessKey = v },
	"minio_secret_key": func(c *Config, v string) { c.Media.SecretKey = v },
}

func applySecrets(cfg *Config) {
	for name, set := range secretKeys {
		if value := readSecret(name); value != "" {
			set(cfg, value)
		}
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
