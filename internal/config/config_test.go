package config_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/textlane/session-client/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	nop := zerolog.Nop()

	cfg, err := config.Load(&nop)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.BaseURL)
	require.Equal(t, 14*time.Minute, cfg.RefreshInterval)
	require.Equal(t, 15*time.Minute, cfg.RefreshMargin)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.NotEmpty(t, cfg.TokenFile)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TEXTLANE_BASE_URL", "https://api.textlane.io")
	t.Setenv("TEXTLANE_REFRESH_INTERVAL", "9m")
	t.Setenv("TEXTLANE_REFRESH_MARGIN", "10m")
	t.Setenv("TEXTLANE_TOKEN_FILE", "/tmp/textlane-tokens.json")
	nop := zerolog.Nop()

	cfg, err := config.Load(&nop)
	require.NoError(t, err)
	require.Equal(t, "https://api.textlane.io", cfg.BaseURL)
	require.Equal(t, 9*time.Minute, cfg.RefreshInterval)
	require.Equal(t, 10*time.Minute, cfg.RefreshMargin)
	require.Equal(t, "/tmp/textlane-tokens.json", cfg.TokenFile)
}

func TestLoadRejectsIntervalNotShorterThanMargin(t *testing.T) {
	t.Setenv("TEXTLANE_REFRESH_INTERVAL", "15m")
	t.Setenv("TEXTLANE_REFRESH_MARGIN", "15m")
	nop := zerolog.Nop()

	_, err := config.Load(&nop)
	require.ErrorContains(t, err, "shorter than the refresh margin")
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("TEXTLANE_REFRESH_INTERVAL", "0s")
	nop := zerolog.Nop()

	_, err := config.Load(&nop)
	require.ErrorContains(t, err, "refresh interval must be positive")
}
