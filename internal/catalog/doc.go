// Package catalog holds the service configuration model and the ConfigStore
// that persists it.
//
// A ServiceConfig is stored as one YAML record per service under the
// "services" kind of a config.Storage. Records are parsed once on load,
// including the compiled entity schemas, and kept in an explicitly owned
// Cache until a write through the ConfigStore replaces them or Invalidate
// evicts them.
//
// Reads after writes made through the same ConfigStore are always consistent.
// Edits made directly to the record files are only visible once the watcher
// (or any other caller) invalidates the affected names.
package catalog
