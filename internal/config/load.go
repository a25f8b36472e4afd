package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file: config.yaml in the working directory.
	// A missing file is fine; environment variables alone are enough.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables with the GRIND_ prefix override file values,
	// e.g. GRIND_DATABASE_URL maps to database.url.
	v.SetEnvPrefix("GRIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults establishes the defaults applied when neither the config
// file nor the environment provides a value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("queue.backend", QueueBackendMemory)
	v.SetDefault("queue.size", 100)
	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.compute_delay_ms", 0)
}

// bindEnvKeys binds each config key explicitly so AutomaticEnv picks
// up variables for keys that have no default and are absent from the
// config file (viper only consults the environment for known keys).
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.port",
		"server.log_level",
		"database.url",
		"queue.backend",
		"queue.size",
		"queue.redis_url",
		"worker.count",
		"worker.max_attempts",
		"worker.compute_delay_ms",
	}
	for _, key := range keys {
		// BindEnv only errors when called with no arguments.
		_ = v.BindEnv(key)
	}
}
