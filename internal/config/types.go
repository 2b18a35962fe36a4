package config

import "time"

// Store drivers accepted in StoreSettings.Driver.
const (
	StoreDriverMemory = "memory"
	StoreDriverMongo  = "mongo"
)

// Settings is the top-level application configuration loaded from settings.yaml.
type Settings struct {
	// ConfigDir is the root directory service records and rename intents live under.
	ConfigDir string `yaml:"configDir" validate:"required"`

	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen" validate:"required,hostname_port"`

	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	Store      StoreSettings      `yaml:"store"`
	Cache      CacheSettings      `yaml:"cache"`
	Watcher    WatcherSettings    `yaml:"watcher"`
	Reconciler ReconcilerSettings `yaml:"reconciler"`
}

// StoreSettings configures the document store backing emulated resources.
type StoreSettings struct {
	Driver   string        `yaml:"driver" validate:"oneof=memory mongo"`
	URI      string        `yaml:"uri,omitempty" validate:"required_if=Driver mongo"`
	Database string        `yaml:"database" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CacheSettings configures the service configuration cache.
type CacheSettings struct {
	// TTL bounds how long a cached record is served; 0 keeps entries until evicted.
	TTL time.Duration `yaml:"ttl" validate:"gte=0"`
}

// WatcherSettings configures filesystem change detection.
type WatcherSettings struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// ReconcilerSettings configures the collection reconciler.
type ReconcilerSettings struct {
	// Interval schedules periodic passes; 0 means passes only run on triggers.
	Interval   time.Duration `yaml:"interval" validate:"gte=0"`
	MaxBackoff time.Duration `yaml:"maxBackoff" validate:"gt=0"`
}
