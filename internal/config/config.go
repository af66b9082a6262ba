package config

// Config holds all configuration for the verification harness.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
}

// ServerConfig contains process-level settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// URL is the connection string. A postgres:// or postgresql:// URL is
	// opened through the pgx driver; anything else is treated as a SQLite
	// DSN for the pure-Go driver.
	URL string `mapstructure:"url" validate:"required"`
}
