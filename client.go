// Package sessionclient wires the session lifecycle manager together from
// environment configuration: a file-backed token store, the HTTP auth
// transport, and the session controller that UI shells subscribe to.
package sessionclient

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/textlane/session-client/internal/config"
	"github.com/textlane/session-client/session"
	"github.com/textlane/session-client/tokenstore"
	"github.com/textlane/session-client/transport"
)

// New builds a session.Controller from TEXTLANE_* environment variables.
// Options are applied after the configuration-derived ones, so callers
// can override any of them.
func New(logger *zerolog.Logger, options ...session.Option) (*session.Controller, error) {
	cfg, err := config.Load(logger)
	if err != nil {
		return nil, errors.Wrap(err, "[sessionclient.New] load configuration")
	}

	store := tokenstore.NewFileStore(cfg.TokenFile, tokenstore.WithLogger(logger))
	authTransport := transport.NewHTTPTransport(
		cfg.BaseURL,
		transport.WithTimeout(cfg.HTTPTimeout),
		transport.WithTransportLogger(logger),
	)

	opts := append([]session.Option{
		session.WithRefreshInterval(cfg.RefreshInterval),
		session.WithRefreshMargin(cfg.RefreshMargin),
		session.WithLogger(logger),
	}, options...)

	controller, err := session.New(session.Deps{Transport: authTransport, Store: store}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "[sessionclient.New] create controller")
	}
	return controller, nil
}
