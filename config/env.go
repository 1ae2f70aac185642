package config

import (
	"os"
	"strings"
)

// Environment selects which settings are mandatory and how strict the
// configuration checks are
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment reads ENV. CI=true wins over anything ENV says.
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}

	switch env := Environment(strings.ToLower(os.Getenv("ENV"))); env {
	case Production, Test:
		return env
	}
	return Development
}

func IsDevelopment() bool {
	return GetEnvironment() == Development
}

// IsProduction switches gin to release mode and forbids sqlite
func IsProduction() bool {
	return GetEnvironment() == Production
}
