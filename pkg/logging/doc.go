// Package logging provides the subsystem-tagged logging facade used across vapi.
//
// The facade is backed by zap's SugaredLogger with a console encoder. Every entry
// carries the subsystem that emitted it and, for Error, the error text as a
// separate field.
//
// # Log Levels
//   - **Debug**: per-request and per-event detail
//   - **Info**: lifecycle messages (startup, shutdown, reconciliation passes)
//   - **Warn**: recovered anomalies such as a corrupt service record
//   - **Error**: failed storage or watcher operations
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	defer logging.Sync()
//
//	logging.Info("Bootstrap", "Loaded settings from %s", path)
//	logging.Error("Gateway", err, "Insert into %s failed", resourceID)
//
// Before InitForCLI is called all logging calls are silently dropped, which keeps
// package tests quiet unless they opt in.
//
// # Subsystems
//
//   - **Bootstrap**: application wiring and shutdown
//   - **ConfigStore**: service record reads, writes and cache activity
//   - **Watcher**: filesystem notifications and cache evictions
//   - **Reconciler**: collection provisioning, renames and orphan removal
//   - **Gateway**: emulated CRUD against backing collections
//   - **API**: HTTP request handling
package logging
