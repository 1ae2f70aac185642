package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigRequirements defines the settings that must be non-empty in an
// environment
type ConfigRequirements struct {
	Required []string
}

var (
	// Environment-specific requirements
	requirements = map[Environment]ConfigRequirements{
		Development: {
			Required: []string{"auth.jwt_secret"},
		},
		Test: {
			Required: []string{"auth.jwt_secret"},
		},
		CI: {
			Required: []string{"auth.jwt_secret", "database.password"},
		},
		Production: {
			Required: []string{"auth.jwt_secret", "database.password", "redis.url"},
		},
	}
)

// settingValue exposes the string settings that can be required
func settingValue(cfg *Config, key string) string {
	switch key {
	case "auth.jwt_secret":
		return cfg.Auth.JWTSecret
	case "database.password":
		if cfg.Database.Driver == "sqlite" {
			return "n/a"
		}
		return cfg.Database.Password
	case "redis.url":
		if cfg.Redis.Host != "" {
			return cfg.Redis.Host
		}
		return cfg.Redis.URL
	}
	return ""
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()
	reqs := requirements[env]

	var errs []ValidationError

	for _, key := range reqs.Required {
		if settingValue(cfg, key) == "" {
			errs = append(errs, ValidationError{Field: key, Message: fmt.Sprintf("is required in %s environment", env)})
		}
	}

	switch cfg.Database.Driver {
	case "postgres":
	case "sqlite":
		if env == Production {
			errs = append(errs, ValidationError{Field: "database.driver", Message: "sqlite is not allowed in production"})
		}
	default:
		errs = append(errs, ValidationError{Field: "database.driver", Message: "must be postgres or sqlite"})
	}

	switch cfg.Media.Backend {
	case "local":
		if cfg.Media.Root == "" {
			errs = append(errs, ValidationError{Field: "media.root", Message: "is required for the local backend"})
		}
	case "s3":
		if cfg.Media.Bucket == "" {
			errs = append(errs, ValidationError{Field: "media.bucket", Message: "is required for the s3 backend"})
		}
	case "minio":
		if cfg.Media.Endpoint == "" {
			errs = append(errs, ValidationError{Field: "media.endpoint", Message: "is required for the minio backend"})
		}
		if cfg.Media.Bucket == "" {
			errs = append(errs, ValidationError{Field: "media.bucket", Message: "is required for the minio backend"})
		}
	default:
		errs = append(errs, ValidationError{Field: "media.backend", Message: "must be local, s3 or minio"})
	}

	if cfg.Pagination.DefaultPageSize < 1 {
		errs = append(errs, ValidationError{Field: "pagination.default_page_size", Message: "must be positive"})
	}
	if cfg.Pagination.MaxPageSize < cfg.Pagination.DefaultPageSize {
		errs = append(errs, ValidationError{Field: "pagination.max_page_size", Message: "must not be below the default page size"})
	}
	if cfg.Auth.TokenTTL <= 0 {
		errs = append(errs, ValidationError{Field: "auth.token_ttl", Message: "must be positive"})
	}

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(msgs, "\n"))
	}

	return nil
}
