package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables use the DBKIT_ prefix with underscores
// for nesting (DBKIT_DATABASE_URL, DBKIT_SERVER_LOG_LEVEL) and take
// precedence over values from the config file. Returns a populated,
// validated Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults: in-memory SQLite and info-level logging, so the harness
	// runs without any configuration at all.
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.url", "file:dbkit?mode=memory&cache=shared")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DBKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; environment and defaults cover it.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
