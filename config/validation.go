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

// ValidateConfig checks that the fields the service cannot run without are set.
func ValidateConfig(cfg *Config) error {
	var errs []string

	required := map[string]string{
		"server port": cfg.ServerPort,
		"db host":     cfg.DBHost,
		"db port":     cfg.DBPort,
		"db user":     cfg.DBUser,
		"db name":     cfg.DBName,
		"jwt secret":  cfg.JWTSecret,
	}
	for field, value := range required {
		if value == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is not set"}.Error())
		}
	}

	// Redis is reachable either through a URL or a host/port pair.
	if cfg.RedisURL == "" && (cfg.RedisHost == "" || cfg.RedisPort == "") {
		errs = append(errs, ValidationError{Field: "redis", Message: "REDIS_URL or REDIS_HOST/REDIS_PORT must be set"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
