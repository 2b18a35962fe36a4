package config

import "time"

const (
	// DefaultListen is the default HTTP listen address.
	DefaultListen = ":8080"

	// DefaultDatabase is the default document store database name.
	DefaultDatabase = "vapi"

	// DefaultStoreTimeout bounds each document store round trip.
	DefaultStoreTimeout = 5 * time.Second

	// DefaultWatcherDebounce collapses bursts of filesystem events per record.
	DefaultWatcherDebounce = 100 * time.Millisecond

	// DefaultReconcileMaxBackoff caps the retry delay after a failed pass.
	DefaultReconcileMaxBackoff = time.Minute
)

// Record kinds stored under ConfigDir.
const (
	KindServices = "services"
	KindRenames  = "renames"
)

// GetDefaultSettings returns the default settings rooted at configDir.
func GetDefaultSettings(configDir string) Settings {
	return Settings{
		ConfigDir: configDir,
		Listen:    DefaultListen,
		LogLevel:  "info",
		Store: StoreSettings{
			Driver:   StoreDriverMemory,
			Database: DefaultDatabase,
			Timeout:  DefaultStoreTimeout,
		},
		Watcher: WatcherSettings{
			Enabled:  true,
			Debounce: DefaultWatcherDebounce,
		},
		Reconciler: ReconcilerSettings{
			MaxBackoff: DefaultReconcileMaxBackoff,
		},
	}
}
