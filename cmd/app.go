package cmd

import (
	"fmt"
	"io"

	"github.com/dailydev/searchstream/pkg/config"
	"github.com/dailydev/searchstream/pkg/headless"
	"github.com/dailydev/searchstream/pkg/history"
	"github.com/dailydev/searchstream/pkg/logger"
	"github.com/dailydev/searchstream/pkg/streaming"
	"github.com/dailydev/searchstream/pkg/transport"
)

// app bundles the components a command needs
type app struct {
	store   *history.Store
	manager *streaming.Manager
	runner  *headless.Runner
}

// newClient builds the search service client from configuration
func newClient(cfg *config.Config) *transport.Client {
	return transport.NewClient(transport.Config{
		BaseURL:      cfg.API.URL,
		SearchPath:   cfg.API.SearchPath,
		SessionsPath: cfg.API.SessionsPath,
		FeedbackPath: cfg.API.FeedbackPath,
		Token:        cfg.API.Token,
		Timeout:      cfg.API.Timeout,
	})
}

// openStore opens the session history when it is enabled
func openStore(cfg *config.Config) (*history.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	path := cfg.Store.Path
	if path != ":memory:" {
		path = config.BuildSettingsPath(path)
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session history: %w", err)
	}
	logger.Debug("session history at %s", path)
	return store, nil
}

// newApp wires a manager over tr, persisting to the history store when
// enabled, and a runner rendering to out and status.
func newApp(tr streaming.Transport, out, status io.Writer, persist bool) (*app, error) {
	cfg := config.Get()

	a := &app{}

	opts := []streaming.Option{streaming.WithUserID(cfg.User.ID)}
	if persist {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		if store != nil {
			a.store = store
			opts = append(opts, streaming.WithPersister(store))
		}
	}

	a.manager = streaming.NewManager(tr, opts...)
	output := headless.NewOutput(out, status, headless.OptionsFromConfig(cfg.Output, out))
	a.runner = headless.NewRunner(a.manager, output)
	return a, nil
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
