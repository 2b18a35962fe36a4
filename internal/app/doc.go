// Package app wires vapi's components together and runs them.
//
// NewApplication loads settings.yaml, applies command line overrides,
// initializes logging and builds the component graph:
//
//	Storage ─► Cache ─► ConfigStore ─┬─► Resolver ─────────┐
//	                                 ├─► Watcher (evicts)  │
//	                                 └─► Reconciler ◄──────┼── DocStore
//	                                                       ▼
//	                                   Gateway ─► api.Server ◄── Broker
//
// Run starts the reconciler loop, the file watcher and the HTTP server, then
// blocks until the context is cancelled or SIGINT/SIGTERM arrives. Shutdown
// stops them in reverse order, clears the configuration cache and closes the
// document store.
//
// Changes detected by the watcher and mutations made through the admin API
// both trigger a reconciliation pass and publish an event to admin clients.
package app
