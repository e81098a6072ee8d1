// Command vibeboard is the provider-orchestration CLI and API server for
// image and video generation across local and cloud backends.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mattyatplay-coder/vibeboard/pkg/bus"
	"github.com/mattyatplay-coder/vibeboard/pkg/config"
	"github.com/mattyatplay-coder/vibeboard/pkg/cost"
	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
	"github.com/mattyatplay-coder/vibeboard/pkg/provider"
	"github.com/mattyatplay-coder/vibeboard/pkg/storage"
)

var (
	version = "dev"

	configPath string
)

// app bundles the wired subsystems commands operate on.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	store      *storage.Store
	events     bus.MessageBus
	dispatcher *provider.Dispatcher
	tracker    *cost.Tracker
	sessionID  string
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.logger != nil {
		a.logger.Close()
	}
}

// newApp loads config and wires the orchestration core. Providers are
// probed once here; credentials supplied later need a new process.
func newApp() (*app, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()

	logger, err := logging.NewLogger(cfg.Logging.Dir, sessionID)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	logger.SetMinLevel(logging.ParseLevel(cfg.Logging.Level))

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	events := bus.NewMemoryBus()

	registry := provider.BuildUsable(provider.Catalog, provider.NewAdapterFactory(cfg, logger), provider.ProbeOptions{
		Preferred:     provider.Kind(cfg.Providers.Preferred),
		Enabled:       func(kind provider.Kind) bool { return cfg.Providers.EnabledFor(string(kind)) },
		HasCredential: config.HasCredential,
		Logger:        logger,
		Events:        events,
	})

	dispatcher := provider.NewDispatcher(registry, provider.DispatcherOptions{
		Logger:    logger,
		Events:    events,
		Store:     store,
		SessionID: sessionID,
	})

	tracker, err := cost.New(sessionID, store, cfg.Budgets)
	if err != nil {
		store.Close()
		logger.Close()
		return nil, fmt.Errorf("initializing cost tracking: %w", err)
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		events:     events,
		dispatcher: dispatcher,
		tracker:    tracker,
		sessionID:  sessionID,
	}, nil
}

func main() {
	root := &cobra.Command{
		Use:           "vibeboard",
		Short:         "Generate images and video across local and cloud providers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(
		newGenerateCmd(),
		newProvidersCmd(),
		newModelsCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newCostCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
