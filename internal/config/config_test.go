package config_test

import (
	"testing"

	"code.cloudfoundry.org/lager/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexmcp/plexmcp/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLEX_TOKEN", "tok")

	cfg := config.Load()

	assert.Equal(t, "http://localhost:32400", cfg.PlexURL)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "tok", cfg.PlexToken)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PLEX_URL", "http://plex.local:32400")
	t.Setenv("PLEX_TOKEN", "secret")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := config.Load()

	assert.Equal(t, "http://plex.local:32400", cfg.PlexURL)
	assert.Equal(t, "secret", cfg.PlexToken)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRequiresToken(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingToken)

	cfg.PlexToken = "tok"
	assert.NoError(t, cfg.Validate())
}

func TestLagerLevel(t *testing.T) {
	for level, want := range map[string]lager.LogLevel{
		"debug":   lager.DEBUG,
		"INFO":    lager.INFO,
		"error":   lager.ERROR,
		"fatal":   lager.FATAL,
		"bogus":   lager.INFO,
		"WARNING": lager.INFO,
	} {
		cfg := &config.Config{LogLevel: level}
		assert.Equal(t, want, cfg.LagerLevel(), "level %q", level)
	}
}
