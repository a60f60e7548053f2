package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables use the
// SLIDESMITH_ prefix with underscores for nesting (e.g. SLIDESMITH_SERVER_PORT)
// and take precedence over file values. The resulting Config is validated
// before being returned.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything can come from the
		// environment. Any other read error is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SLIDESMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about. Secrets
	// deliberately have no defaults, so they are bound explicitly.
	for _, key := range []string{
		"database.url",
		"provider.gemini_api_key",
		"docparse.base_url",
		"docparse.token",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for settings that have sensible
// fallbacks. Required secrets (database URL, API keys) have no defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("storage.root", "uploads")
	v.SetDefault("storage.public_base_url", "/files")

	v.SetDefault("provider.image_model", "gemini-2.5-flash-image")
	v.SetDefault("provider.aspect_ratio", "16:9")
	v.SetDefault("provider.resolution", "2K")
	v.SetDefault("provider.output_language", "en")
	v.SetDefault("provider.call_timeout", 3*time.Minute)
	v.SetDefault("provider.max_retries", 3)

	v.SetDefault("docparse.poll_interval", 5*time.Second)
	v.SetDefault("docparse.poll_timeout", 10*time.Minute)

	v.SetDefault("task.worker_count", 4)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.export_worker_count", 8)
}
