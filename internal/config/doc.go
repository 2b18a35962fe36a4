// Package config provides settings loading and file-backed record storage for vapi.
//
// # Configuration Directory
//
// Everything lives under a single configuration directory (default ~/.config/vapi,
// overridable with --config-path):
//   - settings.yaml: application settings (listen address, store, cache, watcher)
//   - services/: one YAML record per declared service
//   - renames/: pending rename intents written by the reconciler
//
// # Record Storage
//
// Storage persists opaque byte records grouped by kind. Writes go to a temporary
// sibling and are renamed into place, so a reader or a filesystem watcher never
// sees a half-written file. Names are sanitized for filesystem safety; callers
// that need a reversible mapping must only use names that SanitizeFilename
// leaves unchanged.
//
// # Settings
//
// LoadSettings reads settings.yaml with gopkg.in/yaml.v3 on top of
// GetDefaultSettings and validates the result with go-playground/validator.
// Durations are written as Go duration strings ("5s", "250ms").
//
//	listen: ":8080"
//	store:
//	  driver: mongo
//	  uri: mongodb://localhost:27017
//	  database: vapi
//	cache:
//	  ttl: 10m
package config
