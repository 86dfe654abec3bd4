package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the relay server configuration loaded from environment variables.
type Config struct {
	HTTPPort           string        `env:"PORT" envDefault:"3000"`
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"90s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Loaded config: Port=%s, UpstreamTimeout=%s, RequestTimeout=%s, MaxBodyBytes=%d, CORS=%s",
		cfg.HTTPPort, cfg.UpstreamTimeout, cfg.RequestTimeout, cfg.MaxBodyBytes, strings.Join(cfg.CORSAllowedOrigins, ","))

	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.UpstreamTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT and REQUEST_TIMEOUT must be positive")
	}
	if c.RequestTimeout <= c.UpstreamTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed UPSTREAM_TIMEOUT (%s)", c.RequestTimeout, c.UpstreamTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	return nil
}
