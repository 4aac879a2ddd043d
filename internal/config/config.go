package config

import (
	"errors"
	"strings"

	"code.cloudfoundry.org/lager/v3"
	"github.com/spf13/viper"
)

// ErrMissingToken aborts startup; the server cannot degrade to an
// unauthenticated Plex connection.
var ErrMissingToken = errors.New("PLEX_TOKEN environment variable is required")

type Config struct {
	PlexURL   string // base URL of the Plex server
	PlexToken string // X-Plex-Token access token
	Host      string
	Port      int
	LogLevel  string
}

// Load reads configuration from the environment, applying defaults for
// everything except the Plex token.
func Load() *Config {
	v := viper.New()
	v.SetDefault("PLEX_URL", "http://localhost:32400")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8000)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	return &Config{
		PlexURL:   v.GetString("PLEX_URL"),
		PlexToken: v.GetString("PLEX_TOKEN"),
		Host:      v.GetString("HOST"),
		Port:      v.GetInt("PORT"),
		LogLevel:  v.GetString("LOG_LEVEL"),
	}
}

// Validate checks required configuration.
func (c *Config) Validate() error {
	if c.PlexToken == "" {
		return ErrMissingToken
	}
	return nil
}

// LagerLevel maps the configured verbosity onto a lager log level.
// Unrecognized values fall back to info.
func (c *Config) LagerLevel() lager.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return lager.DEBUG
	case "error":
		return lager.ERROR
	case "fatal":
		return lager.FATAL
	default:
		return lager.INFO
	}
}
