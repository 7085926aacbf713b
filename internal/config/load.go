package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file (config.yaml in the working directory). Environment variables
// use the SYNTHCAM_ prefix with underscores for nesting, e.g.
// SYNTHCAM_SERVER_PORT, and take precedence over file values.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 6006)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.history_page_size", 30)
	v.SetDefault("output.dir", "output_images")
	v.SetDefault("output.min_free_gb", 5)
	v.SetDefault("pipeline.backend", "remote")
	v.SetDefault("pipeline.remote_url", "http://127.0.0.1:8000")
	v.SetDefault("pipeline.gemini_model", "gemini-2.0-flash-exp-image-generation")

	// Keys without meaningful defaults still need to be registered so that
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("pipeline.gemini_api_key", "")
	v.SetDefault("database.url", "")

	// Optional config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults apply.
	}

	// Environment variables: SYNTHCAM_SERVER_PORT -> server.port
	v.SetEnvPrefix("SYNTHCAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
