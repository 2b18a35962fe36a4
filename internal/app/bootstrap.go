package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"vapi/internal/config"
	"vapi/internal/reconciler"
	"vapi/pkg/logging"
)

// Application bootstraps and runs vapi.
//
// Initialization happens in two phases:
//  1. NewApplication loads settings, initializes logging and wires components
//  2. Run starts the background loops and the HTTP server
//
// Example usage:
//
//	cfg := app.NewConfig(false, "/etc/vapi")
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads settings from cfg.ConfigPath (unless cfg.Settings is
// already set), applies the command line overrides and initializes every
// component. A document store that cannot be reached is an error.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(logging.LevelInfo, logOutput)

	if cfg.Settings == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			var err error
			configPath, err = config.GetDefaultConfigPath()
			if err != nil {
				return nil, err
			}
		}
		settings, err := config.LoadSettings(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load settings from %s", configPath)
			return nil, fmt.Errorf("failed to load settings from %s: %w", configPath, err)
		}
		cfg.Settings = &settings
	}

	if err := cfg.applyOverrides(cfg.Settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Settings.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.InitForCLI(level, logOutput)

	services, err := InitializeServices(ctx, *cfg.Settings)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the wired components.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves until ctx is cancelled or the process receives SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.services)
}

// ReconcileOnce runs a single reconciliation pass without starting the
// background loops or the server.
func (a *Application) ReconcileOnce(ctx context.Context) (reconciler.PassResult, error) {
	return a.services.Reconciler.Reconcile(ctx)
}

// Close releases the application's resources when Run was not used.
func (a *Application) Close(ctx context.Context) error {
	err := a.services.Close(ctx)
	logging.Sync()
	return err
}
