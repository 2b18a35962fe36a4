package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vapi/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveConfigPath is the directory settings.yaml is read from.
var serveConfigPath string

// Overrides for the corresponding settings.yaml values.
var (
	serveListen      string
	serveStoreDriver string
	serveStoreURI    string
)

// serveCmd starts the HTTP server together with the reconciler and the
// configuration file watcher.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured APIs and the admin API",
	Long: `Starts the vapi server.

The server answers emulated API requests under /api/{service}/{entity}/{route},
exposes the admin API under /admin and streams configuration changes to admin
clients over /admin/ws. Service records are read from the configuration
directory and edits made to them on disk are picked up while running.

Configuration:
  vapi loads settings.yaml from --config-path (default ~/.config/vapi).
  The configuration directory contains:
  - settings.yaml (server settings, optional)
  - services/ (one record per service)
  - renames/ (pending rename intents, managed by vapi)

  --listen, --store and --store-uri override the values in settings.yaml.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, serveConfigPath)
	cfg.Listen = serveListen
	cfg.StoreDriver = serveStoreDriver
	cfg.StoreURI = serveStoreURI

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Configuration directory (default ~/.config/vapi)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides settings.yaml)")
	serveCmd.Flags().StringVar(&serveStoreDriver, "store", "", "Document store driver: memory or mongo (overrides settings.yaml)")
	serveCmd.Flags().StringVar(&serveStoreURI, "store-uri", "", "MongoDB connection URI (overrides settings.yaml)")
}
