// Package config handles process configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	StateSecret string `env:"STATE_SECRET,notEmpty"`
	CacheDir    string `env:"CACHE_DIR" envDefault:".runstreak_cache"`

	Strava StravaConfig `envPrefix:"STRAVA_"`
}

// StravaConfig holds Strava API configuration.
type StravaConfig struct {
	ClientID     string `env:"CLIENT_ID,notEmpty"`
	ClientSecret string `env:"CLIENT_SECRET,notEmpty"`

	// DailyAPILimit caps per-athlete upstream requests per 24h window.
	DailyAPILimit int `env:"DAILY_API_LIMIT" envDefault:"1000"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Strava.DailyAPILimit <= 0 {
		return cfg, fmt.Errorf("STRAVA_DAILY_API_LIMIT must be positive, got %d", cfg.Strava.DailyAPILimit)
	}
	return cfg, nil
}
