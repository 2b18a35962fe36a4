// Package reconciler keeps the document store's collections consistent with
// the service configuration.
//
// Every (service, entity) pair in the configuration owns the collection named
// by catalog.ResourceID, whether or not it is active. A reconciliation pass
// drops every other collection. Renames are never inferred: RenameService and
// RenameEntity move the configuration and the affected collections together,
// journaling the intent first so that a pass after a crash completes the
// rename rather than dropping the old collections.
//
// Start runs passes in the background: once at startup, whenever Trigger is
// called (the watcher and the admin API do so after every configuration
// change), and optionally on a fixed interval. Failed passes are retried with
// exponential backoff.
package reconciler
