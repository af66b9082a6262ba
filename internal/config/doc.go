// Package config defines configuration for the dbkit verification harness
// and loads it from environment variables and optional config files.
package config
