package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Settings holds the environment-driven configuration of the session
// client. The refresh interval must stay shorter than the refresh margin
// so renewal always lands before a token leaves its margin window.
type Settings struct {
	BaseURL         string        `env:"TEXTLANE_BASE_URL" envDefault:"http://localhost:8080"`
	RefreshInterval time.Duration `env:"TEXTLANE_REFRESH_INTERVAL" envDefault:"14m"`
	RefreshMargin   time.Duration `env:"TEXTLANE_REFRESH_MARGIN" envDefault:"15m"`
	HTTPTimeout     time.Duration `env:"TEXTLANE_HTTP_TIMEOUT" envDefault:"30s"`
	TokenFile       string        `env:"TEXTLANE_TOKEN_FILE"`
}

// Load parses Settings from the environment and validates them.
func Load(logger *zerolog.Logger) (*Settings, error) {
	cfg, err := env.ParseAs[Settings]()
	if err != nil {
		return nil, errors.Wrap(err, "[config.Load] parse environment")
	}

	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}

	if err := cfg.validate(); err != nil {
		logger.Error().Err(err).Msg("invalid session client configuration")
		return nil, err
	}
	return &cfg, nil
}

func (s *Settings) validate() error {
	if s.BaseURL == "" {
		return errors.New("[Settings.validate] base URL is required")
	}
	if s.RefreshInterval <= 0 {
		return errors.New("[Settings.validate] refresh interval must be positive")
	}
	if s.RefreshMargin <= 0 {
		return errors.New("[Settings.validate] refresh margin must be positive")
	}
	if s.RefreshInterval >= s.RefreshMargin {
		return errors.New("[Settings.validate] refresh interval must be shorter than the refresh margin")
	}
	if s.HTTPTimeout <= 0 {
		return errors.New("[Settings.validate] HTTP timeout must be positive")
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("data", "tokens.json")
	}
	return filepath.Join(home, ".textlane", "tokens.json")
}
